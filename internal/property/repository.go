package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evcraddock/house-market/internal/db"
	"github.com/evcraddock/house-market/internal/errs"
)

// Repository provides CRUD operations for properties.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a property repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

const insertSQL = `INSERT INTO properties
	(id, owner_id, title, description, price, address, city, state, zip,
	 bedrooms, bathrooms, area_sqft, property_type, status,
	 lister_name, lister_email, lister_phone)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const selectColumns = `id, owner_id, title, description, price, address, city, state, zip,
	bedrooms, bathrooms, area_sqft, property_type, status, views,
	lister_name, lister_email, lister_phone, created_at, updated_at`

// Insert adds a property with its image keys and returns the stored record.
func (r *Repository) Insert(p *Property) (*Property, error) {
	err := db.WithTx(context.Background(), r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(insertSQL,
			p.ID, p.OwnerID, p.Title, p.Description, p.Price,
			p.Address, p.City, p.State, p.Zip,
			p.Bedrooms, p.Bathrooms, p.AreaSqft, p.PropertyType, string(p.Status),
			p.ListerName, p.ListerEmail, p.ListerPhone,
		); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("property %s: %w", p.ID, errs.ErrAlreadyExists)
			}
			return fmt.Errorf("inserting property: %w", err)
		}

		for i, key := range p.ImageKeys {
			if _, err := tx.Exec(
				"INSERT INTO property_images (property_id, position, object_key) VALUES (?, ?, ?)",
				p.ID, i, key,
			); err != nil {
				return fmt.Errorf("inserting image %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(p.ID)
}

// GetByID returns a property by its ID.
func (r *Repository) GetByID(id string) (*Property, error) {
	query := fmt.Sprintf("SELECT %s FROM properties WHERE id = ?", selectColumns)

	p, err := scanProperty(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying property %s: %w", id, err)
	}

	if err := r.loadImages([]*Property{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns properties matching opts, newest first.
func (r *Repository) List(opts ListOptions) ([]*Property, error) {
	query := fmt.Sprintf("SELECT %s FROM properties", selectColumns)
	var args []any
	var conditions []string

	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.City != "" {
		conditions = append(conditions, "LOWER(city) = LOWER(?)")
		args = append(args, opts.City)
	}
	if opts.MinPrice > 0 {
		conditions = append(conditions, "price >= ?")
		args = append(args, opts.MinPrice)
	}
	if opts.MaxPrice > 0 {
		conditions = append(conditions, "price <= ?")
		args = append(args, opts.MaxPrice)
	}
	if opts.MinBedrooms > 0 {
		conditions = append(conditions, "bedrooms >= ?")
		args = append(args, opts.MinBedrooms)
	}
	if opts.Search != "" {
		conditions = append(conditions, `(title LIKE ? ESCAPE '\' OR address LIKE ? ESCAPE '\')`)
		like := "%" + likeEscaper.Replace(opts.Search) + "%"
		args = append(args, like, like)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("closing rows", "err", closeErr)
		}
	}()

	properties := []*Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	if err := r.loadImages(properties); err != nil {
		return nil, err
	}
	return properties, nil
}

// ListByOwner returns the listings created by ownerID.
func (r *Repository) ListByOwner(ownerID string) ([]*Property, error) {
	return r.List(ListOptions{OwnerID: ownerID})
}

// Update writes the mutable fields of p.
func (r *Repository) Update(p *Property) error {
	result, err := r.db.Exec(
		`UPDATE properties SET title = ?, description = ?, price = ?, address = ?, city = ?,
		 state = ?, zip = ?, bedrooms = ?, bathrooms = ?, area_sqft = ?, property_type = ?,
		 status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Title, p.Description, p.Price, p.Address, p.City,
		p.State, p.Zip, p.Bedrooms, p.Bathrooms, p.AreaSqft, p.PropertyType,
		string(p.Status), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}
	return requireRow(result, p.ID)
}

// IncrementViews adds one to the view counter in a single statement.
func (r *Repository) IncrementViews(id string) error {
	result, err := r.db.Exec("UPDATE properties SET views = views + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("incrementing views: %w", err)
	}
	return requireRow(result, id)
}

// Delete removes a property by ID. Images, inquiries and viewings cascade.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	return requireRow(result, id)
}

// loadImages fills ImageKeys, ordered by position, for each property.
func (r *Repository) loadImages(properties []*Property) error {
	if len(properties) == 0 {
		return nil
	}

	byID := make(map[string]*Property, len(properties))
	placeholders := make([]string, 0, len(properties))
	args := make([]any, 0, len(properties))
	for _, p := range properties {
		byID[p.ID] = p
		placeholders = append(placeholders, "?")
		args = append(args, p.ID)
	}

	rows, err := r.db.Query(
		"SELECT property_id, object_key FROM property_images WHERE property_id IN ("+
			strings.Join(placeholders, ", ")+") ORDER BY property_id, position",
		args...,
	)
	if err != nil {
		return fmt.Errorf("loading images: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("closing rows", "err", closeErr)
		}
	}()

	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return fmt.Errorf("scanning image: %w", err)
		}
		if p, ok := byID[id]; ok {
			p.ImageKeys = append(p.ImageKeys, key)
		}
	}
	return rows.Err()
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("property %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
