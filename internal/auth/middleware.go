package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type contextKey int

const (
	userIDKey contextKey = iota
	sessionIDKey
)

// WithUser returns a context carrying the current user and session.
func WithUser(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// UserIDFromContext returns the signed-in user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionIDFromContext returns the session id of the signed-in user, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// Authenticate resolves the current user from a bearer access token or the
// session cookie and stores it in the request context. Requests without a
// valid credential pass through anonymously.
func Authenticate(tokens *TokenIssuer, sessions *SessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err == nil {
				r = r.WithContext(WithUser(r.Context(), claims.Subject, claims.SessionID))
			}
			next.ServeHTTP(w, r)
			return
		}

		if sess, err := sessions.FromRequest(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), sess.UserID, sess.ID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects anonymous requests with a 401 JSON error.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PageRoutes classifies page paths for gating.
type PageRoutes struct {
	// Public pages are for signed-out visitors (landing and auth screens).
	Public []string
	// Member pages require a signed-in user. A trailing "/" matches the subtree.
	Member []string
	// SignIn is where anonymous visitors to member pages are sent.
	SignIn string
	// Home is where signed-in visitors to public pages are sent.
	Home string
}

// DefaultPageRoutes returns the site's page classification.
func DefaultPageRoutes() PageRoutes {
	return PageRoutes{
		Public: []string{"/", "/signin", "/signup", "/confirm", "/reset"},
		Member: []string{
			"/dashboard", "/properties", "/properties/", "/favorites",
			"/catalogue", "/inquiries", "/viewings", "/profile",
		},
		SignIn: "/signin",
		Home:   "/dashboard",
	}
}

// IsPublic reports whether path is a public landing or auth page.
func (p PageRoutes) IsPublic(path string) bool {
	for _, pub := range p.Public {
		if path == pub {
			return true
		}
	}
	return false
}

// IsMember reports whether path is a member-only page.
func (p PageRoutes) IsMember(path string) bool {
	for _, m := range p.Member {
		if strings.HasSuffix(m, "/") {
			if strings.HasPrefix(path, m) {
				return true
			}
			continue
		}
		if path == m {
			return true
		}
	}
	return false
}

// GatePages redirects between the public and member parts of the site based
// only on whether a user is present. Other paths pass through.
func GatePages(routes PageRoutes, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn := UserIDFromContext(r.Context())

		switch {
		case !signedIn && routes.IsMember(r.URL.Path):
			http.Redirect(w, r, routes.SignIn, http.StatusSeeOther)
			return
		case signedIn && routes.IsPublic(r.URL.Path):
			http.Redirect(w, r, routes.Home, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// LoginLimiter tracks failed sign-in attempts per client IP in a sliding window.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

// NewLoginLimiter allows at most rateLimitMaxFail failures per minute per IP.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      rateLimitMaxFail,
		window:   rateLimitWindow,
		now:      time.Now,
	}
}

// prune drops attempts outside the window. Caller holds mu.
func (l *LoginLimiter) prune(ip string) []time.Time {
	cutoff := l.now().Add(-l.window)
	valid := l.attempts[ip][:0]
	for _, t := range l.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(l.attempts, ip)
		return nil
	}
	l.attempts[ip] = valid
	return valid
}

// Blocked reports whether ip has used up its failures for the window.
func (l *LoginLimiter) Blocked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(ip)) >= l.max
}

// RecordFailure records a failed attempt and reports whether ip is now blocked.
func (l *LoginLimiter) RecordFailure(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	valid := append(l.prune(ip), l.now())
	l.attempts[ip] = valid
	return len(valid) >= l.max
}

// Reset forgets the failures for ip after a successful sign-in.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// ClientIP returns the remote host of r without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		slog.Error("encoding error response", "err", err)
	}
}
