package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/house-market/internal/db"
	"github.com/evcraddock/house-market/internal/errs"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
)

// Account is an identity that can sign in.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

// CodeSender delivers verification codes to the account owner.
type CodeSender interface {
	SendCode(email string, purpose Purpose, code string) error
}

// AccountStore manages accounts and their sign-up, sign-in and reset flows.
type AccountStore struct {
	db     *sql.DB
	codes  *CodeStore
	sender CodeSender
	cost   int
}

// NewAccountStore creates an account store.
func NewAccountStore(d *sql.DB, codes *CodeStore, sender CodeSender) *AccountStore {
	return &AccountStore{db: d, codes: codes, sender: sender, cost: bcrypt.DefaultCost}
}

// SignUp creates an unconfirmed account and sends a confirmation code.
func (s *AccountStore) SignUp(email, password, name string) (*Account, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", errs.ErrInvalid)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	id := uuid.NewString()
	if _, err := s.db.Exec(
		"INSERT INTO accounts (id, email, password_hash, name) VALUES (?, ?, ?, ?)",
		id, email, string(hash), name,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: account %s", errs.ErrAlreadyExists, email)
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	if err := s.sendCode(email, PurposeConfirm); err != nil {
		return nil, err
	}

	return s.GetByID(id)
}

// ConfirmSignUp verifies the confirmation code and marks the account confirmed.
func (s *AccountStore) ConfirmSignUp(email, code string) error {
	email = normalizeEmail(email)

	acct, err := s.GetByEmail(email)
	if err != nil {
		return err
	}
	if acct.Confirmed {
		return fmt.Errorf("%w: account is already confirmed", errs.ErrInvalid)
	}

	if err := s.codes.Consume(email, PurposeConfirm, strings.TrimSpace(code)); err != nil {
		return err
	}

	if _, err := s.db.Exec(
		"UPDATE accounts SET confirmed = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		acct.ID,
	); err != nil {
		return fmt.Errorf("confirming account: %w", err)
	}

	return nil
}

// ResendCode issues a fresh confirmation code for an unconfirmed account.
func (s *AccountStore) ResendCode(email string) error {
	email = normalizeEmail(email)

	acct, err := s.GetByEmail(email)
	if err != nil {
		return err
	}
	if acct.Confirmed {
		return fmt.Errorf("%w: account is already confirmed", errs.ErrInvalid)
	}

	return s.sendCode(email, PurposeConfirm)
}

// SignIn checks credentials. Unknown emails and wrong passwords both return
// errs.ErrBadCredentials; a correct password on an unverified account returns
// errs.ErrUnconfirmed. Anything else is returned wrapped.
func (s *AccountStore) SignIn(email, password string) (*Account, error) {
	email = normalizeEmail(email)

	var acct Account
	var hash string
	var confirmed int

	err := s.db.QueryRow(
		"SELECT id, email, name, confirmed, created_at, password_hash FROM accounts WHERE email = ?",
		email,
	).Scan(&acct.ID, &acct.Email, &acct.Name, &confirmed, &acct.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.ErrBadCredentials
		}
		return nil, fmt.Errorf("checking password: %w", err)
	}

	if confirmed == 0 {
		return nil, errs.ErrUnconfirmed
	}
	acct.Confirmed = true

	return &acct, nil
}

// ForgotPassword sends a reset code. Unknown emails are ignored so the
// response does not reveal which addresses have accounts.
func (s *AccountStore) ForgotPassword(email string) error {
	email = normalizeEmail(email)

	if _, err := s.GetByEmail(email); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}

	return s.sendCode(email, PurposeReset)
}

// ConfirmResetPassword sets a new password after verifying the reset code.
// All existing sessions for the account are revoked.
func (s *AccountStore) ConfirmResetPassword(email, code, newPassword string) error {
	email = normalizeEmail(email)

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	acct, err := s.GetByEmail(email)
	if err != nil {
		return err
	}

	if err := s.codes.Consume(email, PurposeReset, strings.TrimSpace(code)); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// A reset signs the account out everywhere.
	return db.WithTx(context.Background(), s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			string(hash), acct.ID,
		); err != nil {
			return fmt.Errorf("updating password: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM sessions WHERE user_id = ?", acct.ID); err != nil {
			return fmt.Errorf("revoking sessions: %w", err)
		}
		return nil
	})
}

// GetByID returns an account by id.
func (s *AccountStore) GetByID(id string) (*Account, error) {
	return s.getBy("id", id)
}

// GetByEmail returns an account by email.
func (s *AccountStore) GetByEmail(email string) (*Account, error) {
	return s.getBy("email", normalizeEmail(email))
}

func (s *AccountStore) getBy(column, value string) (*Account, error) {
	var acct Account
	var confirmed int

	err := s.db.QueryRow(
		"SELECT id, email, name, confirmed, created_at FROM accounts WHERE "+column+" = ?",
		value,
	).Scan(&acct.ID, &acct.Email, &acct.Name, &confirmed, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	acct.Confirmed = confirmed != 0
	return &acct, nil
}

func (s *AccountStore) sendCode(email string, purpose Purpose) error {
	code, err := s.codes.Issue(email, purpose)
	if err != nil {
		return err
	}
	if err := s.sender.SendCode(email, purpose, code); err != nil {
		return fmt.Errorf("sending %s code: %w", purpose, err)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", errs.ErrInvalid, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", errs.ErrInvalid, maxPasswordLen)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
