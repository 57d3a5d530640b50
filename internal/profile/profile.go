// Package profile stores the public user record that mirrors each account.
package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/policy"
)

// User is a member's profile. Records are never hard deleted.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Bio       string    `json:"bio"`
	AvatarKey string    `json:"avatar_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update holds editable fields. Nil fields are left unchanged.
type Update struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarKey *string `json:"avatar_key,omitempty"`
}

// Store manages profiles in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a profile store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Sync creates the profile for an account on first sign-in. An existing
// profile is returned as is, so edited fields are never overwritten.
func (s *Store) Sync(id, email, name string) (*User, error) {
	if _, err := s.db.Exec(
		"INSERT INTO users (id, email, name) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING",
		id, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(name),
	); err != nil {
		return nil, fmt.Errorf("syncing profile: %w", err)
	}
	return s.Get(id)
}

// Get returns a profile by user id.
func (s *Store) Get(id string) (*User, error) {
	var u User
	err := s.db.QueryRow(
		"SELECT id, email, name, phone, bio, avatar_key, created_at, updated_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Bio, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &u, nil
}

// Update edits the profile of id. Only the user themselves may do so.
func (s *Store) Update(subject policy.Subject, id string, in Update) (*User, error) {
	if err := policy.Evaluate(subject, policy.Update, policy.Resource{Kind: policy.KindProfile, OwnerID: id}); err != nil {
		return nil, err
	}

	u, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.AvatarKey != nil {
		u.AvatarKey = *in.AvatarKey
	}

	if _, err := s.db.Exec(
		"UPDATE users SET name = ?, phone = ?, bio = ?, avatar_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		u.Name, u.Phone, u.Bio, u.AvatarKey, id,
	); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	return s.Get(id)
}
