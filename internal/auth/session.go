package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
)

const (
	// SessionExpiry is how long a refresh session lives without use.
	SessionExpiry = 30 * 24 * time.Hour
	// CookieName is the browser session cookie.
	CookieName = "hm_session"
)

// Session is a refresh session. Token is only set when the session is created.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// SessionStore manages refresh sessions in SQLite. Only a sha256 hash of the
// token is stored; the hash doubles as the session id.
type SessionStore struct {
	db     *sql.DB
	secure bool
	now    func() time.Time
}

// NewSessionStore creates a session store. secure marks cookies Secure.
func NewSessionStore(db *sql.DB, secure bool) *SessionStore {
	return &SessionStore{db: db, secure: secure, now: func() time.Time { return time.Now().UTC() }}
}

// Create starts a new session for userID.
func (s *SessionStore) Create(userID string) (*Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	sess := &Session{
		ID:        hashToken(token),
		UserID:    userID,
		Token:     token,
		ExpiresAt: s.now().Add(SessionExpiry),
	}

	if _, err := s.db.Exec(
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		sess.ID, sess.UserID, sess.ExpiresAt,
	); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	return sess, nil
}

// Validate resolves a raw token to its session. Expired sessions are removed.
func (s *SessionStore) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, errs.ErrUnauthorized
	}

	id := hashToken(token)
	sess := &Session{ID: id}

	err := s.db.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.UserID, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invalid session: %w", errs.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if s.now().After(sess.ExpiresAt) {
		if _, delErr := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); delErr != nil {
			return nil, fmt.Errorf("deleting expired session: %w", delErr)
		}
		return nil, fmt.Errorf("session expired: %w", errs.ErrUnauthorized)
	}

	return sess, nil
}

// FromRequest validates the session cookie on r.
func (s *SessionStore) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, fmt.Errorf("no session cookie: %w", errs.ErrUnauthorized)
	}
	return s.Validate(cookie.Value)
}

// Refresh validates token and slides its expiry forward.
func (s *SessionStore) Refresh(token string) (*Session, error) {
	sess, err := s.Validate(token)
	if err != nil {
		return nil, err
	}

	sess.ExpiresAt = s.now().Add(SessionExpiry)
	if _, err := s.db.Exec(
		"UPDATE sessions SET expires_at = ? WHERE id = ?", sess.ExpiresAt, sess.ID,
	); err != nil {
		return nil, fmt.Errorf("extending session: %w", err)
	}

	return sess, nil
}

// Destroy removes the session for a raw token. Unknown tokens are ignored.
func (s *SessionStore) Destroy(token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", hashToken(token)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *SessionStore) Cleanup() error {
	if _, err := s.db.Exec(
		"DELETE FROM sessions WHERE expires_at < ?",
		s.now(),
	); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

// SetCookie writes the browser session cookie.
func (s *SessionStore) SetCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the browser session cookie.
func (s *SessionStore) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
