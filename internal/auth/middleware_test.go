package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromContext(r.Context())
		sid, _ := SessionIDFromContext(r.Context())
		w.Header().Set("X-User", id)
		w.Header().Set("X-Session", sid)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateBearer(t *testing.T) {
	sessions, userID := testSessionStore(t)
	tokens := NewTokenIssuer([]byte("secret"), time.Minute)

	token, _, err := tokens.Issue(userID, "sess-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	Authenticate(tokens, sessions, echoUser()).ServeHTTP(w, r)

	if got := w.Header().Get("X-User"); got != userID {
		t.Errorf("user = %q, want %q", got, userID)
	}
	if got := w.Header().Get("X-Session"); got != "sess-42" {
		t.Errorf("session = %q, want sess-42", got)
	}
}

func TestAuthenticateCookie(t *testing.T) {
	sessions, userID := testSessionStore(t)
	tokens := NewTokenIssuer([]byte("secret"), time.Minute)

	sess, err := sessions.Create(userID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := httptest.NewRequest("GET", "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token})
	w := httptest.NewRecorder()
	Authenticate(tokens, sessions, echoUser()).ServeHTTP(w, r)

	if got := w.Header().Get("X-User"); got != userID {
		t.Errorf("user = %q, want %q", got, userID)
	}
	if got := w.Header().Get("X-Session"); got != sess.ID {
		t.Errorf("session = %q, want %q", got, sess.ID)
	}
}

func TestAuthenticateAnonymous(t *testing.T) {
	sessions, _ := testSessionStore(t)
	tokens := NewTokenIssuer([]byte("secret"), time.Minute)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no credentials", func(*http.Request) {}},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "nope"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			Authenticate(tokens, sessions, echoUser()).ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
			if got := w.Header().Get("X-User"); got != "" {
				t.Errorf("user = %q, want anonymous", got)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(echoUser())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/preferences", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	r := httptest.NewRequest("GET", "/api/preferences", nil)
	r = r.WithContext(WithUser(r.Context(), "user-1", "sess-1"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("signed-in status = %d, want 200", w.Code)
	}
}

func TestGatePages(t *testing.T) {
	handler := GatePages(DefaultPageRoutes(), echoUser())

	tests := []struct {
		name     string
		path     string
		signedIn bool
		wantCode int
		wantLoc  string
	}{
		{"anonymous member page", "/dashboard", false, http.StatusSeeOther, "/signin"},
		{"anonymous property detail", "/properties/abc", false, http.StatusSeeOther, "/signin"},
		{"anonymous favorites", "/favorites", false, http.StatusSeeOther, "/signin"},
		{"anonymous landing", "/", false, http.StatusOK, ""},
		{"anonymous signin", "/signin", false, http.StatusOK, ""},
		{"signed in landing", "/", true, http.StatusSeeOther, "/dashboard"},
		{"signed in signup", "/signup", true, http.StatusSeeOther, "/dashboard"},
		{"signed in member page", "/profile", true, http.StatusOK, ""},
		{"other path anonymous", "/static/style.css", false, http.StatusOK, ""},
		{"other path signed in", "/health", true, http.StatusOK, ""},
		{"prefix is not a member page", "/dashboards", false, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.path, nil)
			if tt.signedIn {
				r = r.WithContext(WithUser(r.Context(), "user-1", "sess-1"))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if loc := w.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("location = %q, want %q", loc, tt.wantLoc)
			}
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 1; i < rateLimitMaxFail; i++ {
		if l.RecordFailure("1.2.3.4") {
			t.Fatalf("blocked after %d failures", i)
		}
	}
	if l.Blocked("1.2.3.4") {
		t.Fatal("should not be blocked before the limit")
	}
	if !l.RecordFailure("1.2.3.4") {
		t.Fatal("expected block at the limit")
	}
	if !l.Blocked("1.2.3.4") {
		t.Error("Blocked should report true")
	}
	if l.Blocked("5.6.7.8") {
		t.Error("other IPs are independent")
	}

	now = now.Add(rateLimitWindow + time.Second)
	if l.Blocked("1.2.3.4") {
		t.Error("failures should age out of the window")
	}

	l.RecordFailure("1.2.3.4")
	l.Reset("1.2.3.4")
	if l.Blocked("1.2.3.4") {
		t.Error("reset should clear failures")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(r); got != "10.0.0.1" {
		t.Errorf("ip = %q", got)
	}
	r.RemoteAddr = "weird"
	if got := ClientIP(r); got != "weird" {
		t.Errorf("ip = %q", got)
	}
}
