package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/preference"
)

// prefServer keeps one favorites list in memory and toggles it on POST.
func prefServer(t *testing.T, fail bool) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	favorites := []string{"p1"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/preferences":
		case r.Method == http.MethodPost && r.URL.Path == "/api/preferences/favorites/p2":
			if fail {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"not found"}`))
				return
			}
			favorites = append(favorites, "p2")
		default:
			http.NotFound(w, r)
			return
		}
		body := `{"favorites":[`
		for i, id := range favorites {
			if i > 0 {
				body += ","
			}
			body += `"` + id + `"`
		}
		body += `],"catalogue":[]}`
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), favorites...)
	}
}

func toggleCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestToggleAddsFavorite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv, favorites := prefServer(t, false)
	t.Setenv("HM_SERVER_URL", srv.URL)

	if err := runToggle(toggleCmd(), preference.Favorites, "p2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := favorites(); len(got) != 2 {
		t.Errorf("server favorites = %v", got)
	}
}

func TestToggleRejectedReturnsServerError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv, favorites := prefServer(t, true)
	t.Setenv("HM_SERVER_URL", srv.URL)

	err := runToggle(toggleCmd(), preference.Favorites, "p2")
	if err == nil || err.Error() != "not found" {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := favorites(); len(got) != 1 {
		t.Errorf("server favorites changed: %v", got)
	}
}
