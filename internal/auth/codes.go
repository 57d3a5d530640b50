package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/evcraddock/house-market/internal/db"
	"github.com/evcraddock/house-market/internal/errs"
)

// Purpose is what a verification code may be used for.
type Purpose string

const (
	PurposeConfirm Purpose = "confirm"
	PurposeReset   Purpose = "reset"
)

const codeExpiry = 15 * time.Minute

// CodeStore manages single-use numeric verification codes in SQLite.
type CodeStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewCodeStore creates a code store.
func NewCodeStore(d *sql.DB) *CodeStore {
	return &CodeStore{db: d, now: func() time.Time { return time.Now().UTC() }}
}

// Issue creates a new 6-digit code for email and purpose.
// Any earlier unused code with the same purpose stops being valid.
func (s *CodeStore) Issue(email string, purpose Purpose) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}

	err = db.WithTx(context.Background(), s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"UPDATE verification_codes SET used = 1 WHERE email = ? AND purpose = ? AND used = 0",
			email, string(purpose),
		); err != nil {
			return fmt.Errorf("superseding codes: %w", err)
		}

		if _, err := tx.Exec(
			"INSERT INTO verification_codes (email, purpose, code, expires_at) VALUES (?, ?, ?, ?)",
			email, string(purpose), code, s.now().Add(codeExpiry),
		); err != nil {
			return fmt.Errorf("storing code: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return code, nil
}

// Consume checks code against the latest unused code for email and purpose
// and marks it used. Returns errs.ErrCodeMismatch or errs.ErrCodeExpired.
func (s *CodeStore) Consume(email string, purpose Purpose, code string) error {
	var id int64
	var stored string
	var expiresAt time.Time

	err := s.db.QueryRow(
		`SELECT id, code, expires_at FROM verification_codes
		 WHERE email = ? AND purpose = ? AND used = 0
		 ORDER BY id DESC LIMIT 1`,
		email, string(purpose),
	).Scan(&id, &stored, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("querying code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return errs.ErrCodeMismatch
	}

	if s.now().After(expiresAt) {
		return errs.ErrCodeExpired
	}

	if _, err := s.db.Exec("UPDATE verification_codes SET used = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("marking code used: %w", err)
	}

	return nil
}

// Cleanup removes expired and used codes.
func (s *CodeStore) Cleanup() error {
	if _, err := s.db.Exec(
		"DELETE FROM verification_codes WHERE used = 1 OR expires_at < ?",
		s.now(),
	); err != nil {
		return fmt.Errorf("cleaning up codes: %w", err)
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
