package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// authServer answers sign-in for one account and records sign-outs.
func authServer(t *testing.T, signedOut *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/signin":
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode signin: %v", err)
			}
			if req["email"] != "me@example.com" || req["password"] != "secret-password" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"incorrect email or password"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"acc","refresh_token":"ref","expires_at":"2026-10-17T12:00:00Z","user_id":"u1"}`))
		case "/api/auth/signout":
			if signedOut != nil {
				signedOut.Store(true)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginSavesTokens(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := authServer(t, nil)

	in := strings.NewReader("secret-password\n")
	if err := runLogin(context.Background(), srv.URL, "me@example.com", in, io.Discard); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AccessToken != "acc" || cfg.RefreshToken != "ref" || cfg.UserID != "u1" {
		t.Errorf("tokens = %+v", cfg)
	}
	if cfg.ServerURL != srv.URL || cfg.Email != "me@example.com" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoginPromptsForEmail(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := authServer(t, nil)

	in := strings.NewReader("me@example.com\nsecret-password")
	if err := runLogin(context.Background(), srv.URL, "", in, io.Discard); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLoginBadPassword(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := authServer(t, nil)

	err := runLogin(context.Background(), srv.URL, "me@example.com", strings.NewReader("wrong\n"), io.Discard)
	if err == nil || err.Error() != "incorrect email or password" {
		t.Fatalf("expected server message, got %v", err)
	}

	cfg, _ := loadConfig()
	if cfg.signedIn() {
		t.Error("failed login should not store tokens")
	}
}
