package inquiry

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/evcraddock/house-market/internal/errs"
)

// Repository provides CRUD operations for inquiries.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an inquiry repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, property_id, sender_id, owner_id, sender_name, sender_email, sender_phone,
	subject, message, status, priority, created_at, updated_at`

func scanInquiry(row interface{ Scan(...any) error }) (*Inquiry, error) {
	var q Inquiry
	var status, priority string
	if err := row.Scan(
		&q.ID, &q.PropertyID, &q.SenderID, &q.OwnerID, &q.SenderName, &q.SenderEmail, &q.SenderPhone,
		&q.Subject, &q.Message, &status, &priority, &q.CreatedAt, &q.UpdatedAt,
	); err != nil {
		return nil, err
	}
	q.Status = Status(status)
	q.Priority = Priority(priority)
	return &q, nil
}

// Insert stores a new inquiry and returns it as read back.
func (r *Repository) Insert(q *Inquiry) (*Inquiry, error) {
	if _, err := r.db.Exec(
		`INSERT INTO client_queries
		 (id, property_id, sender_id, owner_id, sender_name, sender_email, sender_phone, subject, message, status, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.PropertyID, q.SenderID, q.OwnerID, q.SenderName, q.SenderEmail, q.SenderPhone,
		q.Subject, q.Message, string(q.Status), string(q.Priority),
	); err != nil {
		return nil, fmt.Errorf("inserting inquiry: %w", err)
	}
	return r.GetByID(q.ID)
}

// GetByID returns an inquiry by ID.
func (r *Repository) GetByID(id string) (*Inquiry, error) {
	q, err := scanInquiry(r.db.QueryRow("SELECT "+selectColumns+" FROM client_queries WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inquiry %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying inquiry %s: %w", id, err)
	}
	return q, nil
}

// ListByOwner returns inquiries received on ownerID's listings, newest first.
func (r *Repository) ListByOwner(ownerID string) ([]*Inquiry, error) {
	return r.list("owner_id", ownerID)
}

// ListBySender returns inquiries sent by senderID, newest first.
func (r *Repository) ListBySender(senderID string) ([]*Inquiry, error) {
	return r.list("sender_id", senderID)
}

func (r *Repository) list(column, value string) ([]*Inquiry, error) {
	rows, err := r.db.Query(
		"SELECT "+selectColumns+" FROM client_queries WHERE "+column+" = ? ORDER BY created_at DESC, id",
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inquiries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("closing rows", "err", closeErr)
		}
	}()

	inquiries := []*Inquiry{}
	for rows.Next() {
		q, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning inquiry: %w", err)
		}
		inquiries = append(inquiries, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inquiries: %w", err)
	}

	return inquiries, nil
}

// UpdateStatus sets the status of an inquiry.
func (r *Repository) UpdateStatus(id string, status Status) error {
	return r.set(id, "status", string(status))
}

// UpdatePriority sets the priority of an inquiry.
func (r *Repository) UpdatePriority(id string, priority Priority) error {
	return r.set(id, "priority", string(priority))
}

func (r *Repository) set(id, column, value string) error {
	result, err := r.db.Exec(
		"UPDATE client_queries SET "+column+" = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		value, id,
	)
	if err != nil {
		return fmt.Errorf("updating inquiry %s: %w", column, err)
	}
	return requireRow(result, id)
}

// Delete removes an inquiry by ID.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM client_queries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting inquiry: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("inquiry %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
