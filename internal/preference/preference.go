// Package preference stores each user's catalogue and favorite listings.
package preference

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/house-market/internal/db"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/membership"
	"github.com/evcraddock/house-market/internal/policy"
)

// List names one of the membership lists.
type List string

const (
	Catalogue List = "catalogue"
	Favorites List = "favorites"
)

// ParseList maps a path segment to a List.
func ParseList(s string) (List, error) {
	switch List(s) {
	case Catalogue, Favorites:
		return List(s), nil
	}
	return "", fmt.Errorf("%w: unknown list %q", errs.ErrInvalid, s)
}

const maxSearchHistory = 20

// PriceRange is a preferred price band. Zero means unset.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Preference is a user's saved listings and search settings.
type Preference struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Catalogue          []string   `json:"catalogue"`
	Favorites          []string   `json:"favorites"`
	SearchHistory      []string   `json:"search_history"`
	PriceRange         PriceRange `json:"price_range"`
	PreferredLocations []string   `json:"preferred_locations"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Settings replaces the search settings of a preference.
type Settings struct {
	PriceRange         PriceRange `json:"price_range"`
	PreferredLocations []string   `json:"preferred_locations"`
}

// Store persists one preference row per user.
type Store struct {
	db *sql.DB
}

// NewStore creates a preference store.
func NewStore(d *sql.DB) *Store {
	return &Store{db: d}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func authorize(subject policy.Subject, action policy.Action) error {
	return policy.Evaluate(subject, action, policy.Resource{Kind: policy.KindPreference, OwnerID: subject.UserID})
}

// Get returns the subject's preference, creating it with defaults if absent.
func (s *Store) Get(ctx context.Context, subject policy.Subject) (*Preference, error) {
	if err := authorize(subject, policy.Read); err != nil {
		return nil, err
	}
	return getOrCreate(ctx, s.db, subject.UserID)
}

// Toggle removes propertyID from list when present, otherwise appends it.
// Property ids are not checked for existence.
func (s *Store) Toggle(ctx context.Context, subject policy.Subject, list List, propertyID string) (*Preference, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("%w: property id is required", errs.ErrInvalid)
	}
	return s.modify(ctx, subject, func(p *Preference) {
		ids := p.list(list)
		*ids = membership.Toggle(*ids, propertyID)
	})
}

// Replace sets list to ids, dropping duplicates.
func (s *Store) Replace(ctx context.Context, subject policy.Subject, list List, ids []string) (*Preference, error) {
	return s.modify(ctx, subject, func(p *Preference) {
		*p.list(list) = membership.Dedupe(ids)
	})
}

// RecordSearch puts query at the front of the search history.
func (s *Store) RecordSearch(ctx context.Context, subject policy.Subject, query string) (*Preference, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", errs.ErrInvalid)
	}
	return s.modify(ctx, subject, func(p *Preference) {
		history := []string{query}
		for _, q := range p.SearchHistory {
			if q != query && len(history) < maxSearchHistory {
				history = append(history, q)
			}
		}
		p.SearchHistory = history
	})
}

// UpdateSettings replaces the price range and preferred locations.
func (s *Store) UpdateSettings(ctx context.Context, subject policy.Subject, in Settings) (*Preference, error) {
	if in.PriceRange.Min < 0 || in.PriceRange.Max < 0 ||
		(in.PriceRange.Max > 0 && in.PriceRange.Min > in.PriceRange.Max) {
		return nil, fmt.Errorf("%w: price range %d-%d", errs.ErrInvalid, in.PriceRange.Min, in.PriceRange.Max)
	}
	return s.modify(ctx, subject, func(p *Preference) {
		p.PriceRange = in.PriceRange
		p.PreferredLocations = membership.Dedupe(in.PreferredLocations)
	})
}

func (s *Store) modify(ctx context.Context, subject policy.Subject, fn func(*Preference)) (*Preference, error) {
	if err := authorize(subject, policy.Update); err != nil {
		return nil, err
	}

	var p *Preference
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if p, err = getOrCreate(ctx, tx, subject.UserID); err != nil {
			return err
		}
		fn(p)
		return save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Preference) list(l List) *[]string {
	if l == Favorites {
		return &p.Favorites
	}
	return &p.Catalogue
}

func getOrCreate(ctx context.Context, q querier, userID string) (*Preference, error) {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO user_preferences (id, user_id) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING",
		uuid.NewString(), userID,
	); err != nil {
		return nil, fmt.Errorf("creating preference: %w", err)
	}

	var p Preference
	var catalogue, favorites, history, locations string
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, catalogue_json, favorites_json, search_history_json,
		        price_min, price_max, preferred_locations_json, created_at, updated_at
		 FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&p.ID, &p.UserID, &catalogue, &favorites, &history,
		&p.PriceRange.Min, &p.PriceRange.Max, &locations, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying preference: %w", err)
	}

	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{catalogue, &p.Catalogue},
		{favorites, &p.Favorites},
		{history, &p.SearchHistory},
		{locations, &p.PreferredLocations},
	} {
		if err := decodeIDs(f.raw, f.dst); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func save(ctx context.Context, q querier, p *Preference) error {
	var encoded [4]string
	for i, ids := range [][]string{p.Catalogue, p.Favorites, p.SearchHistory, p.PreferredLocations} {
		if ids == nil {
			ids = []string{}
		}
		data, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("encoding preference: %w", err)
		}
		encoded[i] = string(data)
	}

	p.UpdatedAt = time.Now().UTC()
	if _, err := q.ExecContext(ctx,
		`UPDATE user_preferences
		 SET catalogue_json = ?, favorites_json = ?, search_history_json = ?,
		     price_min = ?, price_max = ?, preferred_locations_json = ?, updated_at = ?
		 WHERE id = ?`,
		encoded[0], encoded[1], encoded[2],
		p.PriceRange.Min, p.PriceRange.Max, encoded[3], p.UpdatedAt, p.ID,
	); err != nil {
		return fmt.Errorf("saving preference: %w", err)
	}
	return nil
}

func decodeIDs(raw string, dst *[]string) error {
	ids := []string{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return fmt.Errorf("decoding preference list: %w", err)
		}
	}
	if ids == nil {
		ids = []string{}
	}
	*dst = ids
	return nil
}
