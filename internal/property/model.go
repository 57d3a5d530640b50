// Package property provides the listing model, its data access and the
// service that manages images, view counts and list caching.
package property

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
)

// Status is where a listing is in the sale workflow. Transitions are free-form.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
)

// ValidStatus returns true if s is a known listing status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusAvailable, StatusPending, StatusSold:
		return true
	}
	return false
}

// Property is a listing.
type Property struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zip          string    `json:"zip"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	AreaSqft     int64     `json:"area_sqft"`
	PropertyType string    `json:"property_type"`
	Status       Status    `json:"status"`
	Views        int64     `json:"views"`
	ImageKeys    []string  `json:"image_keys"`
	ImageURLs    []string  `json:"image_urls"`
	ListerName   string    `json:"lister_name"`
	ListerEmail  string    `json:"lister_email"`
	ListerPhone  string    `json:"lister_phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Lister is the contact copied onto a listing when it is created.
type Lister struct {
	Name  string
	Email string
	Phone string
}

// Input holds the owner-supplied fields of a new listing.
type Input struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        int64   `json:"price"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zip          string  `json:"zip"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	AreaSqft     int64   `json:"area_sqft"`
	PropertyType string  `json:"property_type"`
	Status       Status  `json:"status"`
}

// Validate normalizes in and checks required fields.
func (in *Input) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)

	if in.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrInvalid)
	}
	if in.Address == "" {
		return fmt.Errorf("%w: address is required", errs.ErrInvalid)
	}
	if in.Price < 0 || in.Bedrooms < 0 || in.Bathrooms < 0 || in.AreaSqft < 0 {
		return fmt.Errorf("%w: numbers must not be negative", errs.ErrInvalid)
	}
	if in.Status == "" {
		in.Status = StatusAvailable
	}
	if !ValidStatus(string(in.Status)) {
		return fmt.Errorf("%w: status %q", errs.ErrInvalid, in.Status)
	}
	return nil
}

// Patch holds fields to change on an existing listing. Nil fields are kept.
type Patch struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Price        *int64   `json:"price,omitempty"`
	Address      *string  `json:"address,omitempty"`
	City         *string  `json:"city,omitempty"`
	State        *string  `json:"state,omitempty"`
	Zip          *string  `json:"zip,omitempty"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	AreaSqft     *int64   `json:"area_sqft,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"`
	Status       *Status  `json:"status,omitempty"`
}

// Apply copies the set fields of pt onto p and validates the result.
func (pt Patch) Apply(p *Property) error {
	in := Input{
		Title: p.Title, Description: p.Description, Price: p.Price,
		Address: p.Address, City: p.City, State: p.State, Zip: p.Zip,
		Bedrooms: p.Bedrooms, Bathrooms: p.Bathrooms, AreaSqft: p.AreaSqft,
		PropertyType: p.PropertyType, Status: p.Status,
	}

	setString(&in.Title, pt.Title)
	setString(&in.Description, pt.Description)
	setString(&in.Address, pt.Address)
	setString(&in.City, pt.City)
	setString(&in.State, pt.State)
	setString(&in.Zip, pt.Zip)
	setString(&in.PropertyType, pt.PropertyType)
	if pt.Price != nil {
		in.Price = *pt.Price
	}
	if pt.Bedrooms != nil {
		in.Bedrooms = *pt.Bedrooms
	}
	if pt.Bathrooms != nil {
		in.Bathrooms = *pt.Bathrooms
	}
	if pt.AreaSqft != nil {
		in.AreaSqft = *pt.AreaSqft
	}
	if pt.Status != nil {
		in.Status = *pt.Status
		if in.Status == "" {
			return fmt.Errorf("%w: status must not be empty", errs.ErrInvalid)
		}
	}

	if err := in.Validate(); err != nil {
		return err
	}

	p.Title, p.Description, p.Price = in.Title, in.Description, in.Price
	p.Address, p.City, p.State, p.Zip = in.Address, in.City, in.State, in.Zip
	p.Bedrooms, p.Bathrooms, p.AreaSqft = in.Bedrooms, in.Bathrooms, in.AreaSqft
	p.PropertyType, p.Status = in.PropertyType, in.Status
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Image is an uploaded image to attach to a new listing.
type Image struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// ListOptions controls filtering for List. Zero values mean "any".
type ListOptions struct {
	OwnerID     string
	Status      Status
	City        string
	MinPrice    int64
	MaxPrice    int64
	MinBedrooms int
	Search      string // matches title or address
	Limit       int
	Offset      int
}

// Params returns the set options as strings, for building cache keys.
func (o ListOptions) Params() map[string]string {
	p := map[string]string{}
	if o.OwnerID != "" {
		p["owner"] = o.OwnerID
	}
	if o.Status != "" {
		p["status"] = string(o.Status)
	}
	if o.City != "" {
		p["city"] = strings.ToLower(o.City)
	}
	if o.MinPrice > 0 {
		p["min_price"] = strconv.FormatInt(o.MinPrice, 10)
	}
	if o.MaxPrice > 0 {
		p["max_price"] = strconv.FormatInt(o.MaxPrice, 10)
	}
	if o.MinBedrooms > 0 {
		p["min_beds"] = strconv.Itoa(o.MinBedrooms)
	}
	if o.Search != "" {
		p["q"] = strings.ToLower(o.Search)
	}
	if o.Limit > 0 {
		p["limit"] = strconv.Itoa(o.Limit)
	}
	if o.Offset > 0 {
		p["offset"] = strconv.Itoa(o.Offset)
	}
	return p
}

// ParseListOptions reads the query parameters produced by Params.
func ParseListOptions(q url.Values) (ListOptions, error) {
	opts := ListOptions{
		OwnerID: q.Get("owner"),
		Status:  Status(q.Get("status")),
		City:    q.Get("city"),
		Search:  q.Get("q"),
	}
	if opts.Status != "" && !ValidStatus(string(opts.Status)) {
		return opts, fmt.Errorf("%w: status %q", errs.ErrInvalid, opts.Status)
	}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"min_price", &opts.MinPrice},
		{"max_price", &opts.MaxPrice},
	}
	for _, f := range ints {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return opts, fmt.Errorf("%w: %s %q", errs.ErrInvalid, f.name, v)
			}
			*f.dst = n
		}
	}

	small := []struct {
		name string
		dst  *int
	}{
		{"min_beds", &opts.MinBedrooms},
		{"limit", &opts.Limit},
		{"offset", &opts.Offset},
	}
	for _, f := range small {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, fmt.Errorf("%w: %s %q", errs.ErrInvalid, f.name, v)
			}
			*f.dst = n
		}
	}
	return opts, nil
}

// Query encodes the set options as URL query parameters.
func (o ListOptions) Query() url.Values {
	q := url.Values{}
	for k, v := range o.Params() {
		q.Set(k, v)
	}
	return q
}

// scanProperty scans a property from a database row. Image keys are loaded separately.
func scanProperty(row interface{ Scan(...any) error }) (*Property, error) {
	var p Property
	var status string

	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Price,
		&p.Address, &p.City, &p.State, &p.Zip,
		&p.Bedrooms, &p.Bathrooms, &p.AreaSqft, &p.PropertyType,
		&status, &p.Views,
		&p.ListerName, &p.ListerEmail, &p.ListerPhone,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = Status(status)
	p.ImageKeys = []string{}
	return &p, nil
}
