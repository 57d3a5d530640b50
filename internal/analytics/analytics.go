// Package analytics summarizes a lister's listings, inquiries and viewings.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/policy"
)

// DefaultTopN is the number of top listings returned when none is asked for.
const DefaultTopN = 5

// Listing is per-listing engagement.
type Listing struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Views      int64  `json:"views"`
	Favorites  int64  `json:"favorites"`
	Catalogued int64  `json:"catalogued"`
	Inquiries  int64  `json:"inquiries"`
}

// Dashboard is the lister overview.
type Dashboard struct {
	TotalListings     int64            `json:"total_listings"`
	TotalViews        int64            `json:"total_views"`
	ListingsByStatus  map[string]int64 `json:"listings_by_status"`
	InquiriesByStatus map[string]int64 `json:"inquiries_by_status"`
	ViewingsByStatus  map[string]int64 `json:"viewings_by_status"`
	TopListings       []Listing        `json:"top_listings"`
	Listings          []Listing        `json:"listings"`
}

// Service computes dashboards from the database.
type Service struct {
	db *sql.DB
}

// NewService creates an analytics service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ForOwner builds the dashboard for the subject's own listings. topN <= 0
// uses DefaultTopN.
func (s *Service) ForOwner(ctx context.Context, subject policy.Subject, topN int) (*Dashboard, error) {
	if subject.Anonymous() {
		return nil, fmt.Errorf("analytics: %w", errs.ErrUnauthorized)
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	owner := subject.UserID

	d := &Dashboard{TopListings: []Listing{}}
	var err error

	if d.ListingsByStatus, err = s.countBy(ctx,
		"SELECT status, COUNT(*) FROM properties WHERE owner_id = ? GROUP BY status", owner); err != nil {
		return nil, err
	}
	if d.InquiriesByStatus, err = s.countBy(ctx,
		"SELECT status, COUNT(*) FROM client_queries WHERE owner_id = ? GROUP BY status", owner); err != nil {
		return nil, err
	}
	if d.ViewingsByStatus, err = s.countBy(ctx,
		"SELECT status, COUNT(*) FROM property_viewings WHERE owner_id = ? GROUP BY status", owner); err != nil {
		return nil, err
	}

	if d.Listings, err = s.listings(ctx, owner); err != nil {
		return nil, err
	}
	for _, l := range d.Listings {
		d.TotalListings++
		d.TotalViews += l.Views
	}
	for i := 0; i < len(d.Listings) && i < topN; i++ {
		d.TopListings = append(d.TopListings, d.Listings[i])
	}

	return d, nil
}

func (s *Service) countBy(ctx context.Context, query, owner string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("counting: %w", err)
	}
	defer closeRows(rows)

	counts := map[string]int64{}
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return counts, nil
}

// listings returns every listing of owner ordered by views, most viewed first.
func (s *Service) listings(ctx context.Context, owner string) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.status, p.views,
			(SELECT COUNT(DISTINCT up.user_id) FROM user_preferences up, json_each(up.favorites_json) f
			 WHERE f.value = p.id),
			(SELECT COUNT(DISTINCT up.user_id) FROM user_preferences up, json_each(up.catalogue_json) c
			 WHERE c.value = p.id),
			(SELECT COUNT(*) FROM client_queries q WHERE q.property_id = p.id)
		FROM properties p
		WHERE p.owner_id = ?
		ORDER BY p.views DESC, p.created_at DESC, p.id`, owner)
	if err != nil {
		return nil, fmt.Errorf("querying listing stats: %w", err)
	}
	defer closeRows(rows)

	listings := []Listing{}
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.Title, &l.Status, &l.Views, &l.Favorites, &l.Catalogued, &l.Inquiries); err != nil {
			return nil, fmt.Errorf("scanning listing stats: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listing stats: %w", err)
	}
	return listings, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Warn("closing rows", "err", err)
	}
}
