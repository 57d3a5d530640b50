// Package viewing schedules property viewings between buyers and listing owners.
package viewing

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
)

// Status of a viewing request.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusScheduled, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Viewing is a request to tour a property at a given time.
type Viewing struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"property_id"`
	RequesterID string    `json:"requester_id"`
	OwnerID     string    `json:"owner_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is a new viewing request.
type Input struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes"`
}

// Validate checks that the viewing is scheduled after now.
func (in *Input) Validate(now time.Time) error {
	in.Notes = strings.TrimSpace(in.Notes)
	if in.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", errs.ErrInvalid)
	}
	if !in.ScheduledAt.After(now) {
		return fmt.Errorf("%w: scheduled_at must be in the future", errs.ErrInvalid)
	}
	return nil
}

// Repository provides CRUD operations for viewings.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a viewing repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, property_id, requester_id, owner_id, scheduled_at, notes, status, created_at, updated_at`

func scanViewing(row interface{ Scan(...any) error }) (*Viewing, error) {
	var v Viewing
	var status string
	if err := row.Scan(&v.ID, &v.PropertyID, &v.RequesterID, &v.OwnerID, &v.ScheduledAt,
		&v.Notes, &status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Status = Status(status)
	v.ScheduledAt = v.ScheduledAt.UTC()
	return &v, nil
}

// Insert stores a viewing and returns it as read back.
func (r *Repository) Insert(v *Viewing) (*Viewing, error) {
	if _, err := r.db.Exec(
		`INSERT INTO property_viewings (id, property_id, requester_id, owner_id, scheduled_at, notes, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PropertyID, v.RequesterID, v.OwnerID, v.ScheduledAt.UTC(), v.Notes, string(v.Status),
	); err != nil {
		return nil, fmt.Errorf("inserting viewing: %w", err)
	}
	return r.GetByID(v.ID)
}

// GetByID returns a viewing by ID.
func (r *Repository) GetByID(id string) (*Viewing, error) {
	v, err := scanViewing(r.db.QueryRow("SELECT "+selectColumns+" FROM property_viewings WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("viewing %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying viewing %s: %w", id, err)
	}
	return v, nil
}

// ListByOwner returns viewings of ownerID's listings, soonest first.
func (r *Repository) ListByOwner(ownerID string) ([]*Viewing, error) {
	return r.list("owner_id", ownerID)
}

// ListByRequester returns viewings requested by requesterID, soonest first.
func (r *Repository) ListByRequester(requesterID string) ([]*Viewing, error) {
	return r.list("requester_id", requesterID)
}

func (r *Repository) list(column, value string) ([]*Viewing, error) {
	rows, err := r.db.Query(
		"SELECT "+selectColumns+" FROM property_viewings WHERE "+column+" = ? ORDER BY scheduled_at, id",
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("listing viewings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("closing rows", "err", closeErr)
		}
	}()

	viewings := []*Viewing{}
	for rows.Next() {
		v, err := scanViewing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning viewing: %w", err)
		}
		viewings = append(viewings, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating viewings: %w", err)
	}

	return viewings, nil
}

// UpdateStatus sets the status of a viewing.
func (r *Repository) UpdateStatus(id string, status Status) error {
	result, err := r.db.Exec(
		"UPDATE property_viewings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating viewing status: %w", err)
	}
	return requireRow(result, id)
}

// Delete removes a viewing by ID.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM property_viewings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting viewing: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("viewing %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
