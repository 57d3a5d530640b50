package storage

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
)

// Handler serves objects behind signed URLs at FilesPrefix.
// Missing or forged tokens get 403; unknown keys get 404.
func Handler(s *LocalStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		key, err := CleanKey(strings.TrimPrefix(r.URL.Path, FilesPrefix))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		if err := s.Verify(key, r.URL.Query().Get("token")); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		rc, contentType, err := s.Open(key)
		if errors.Is(err, errs.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			slog.Error("opening object", "key", key, "err", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := rc.Close(); err != nil {
				slog.Warn("closing object", "key", key, "err", err)
			}
		}()

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Cache-Control", "private, max-age=300")

		if rs, ok := rc.(io.ReadSeeker); ok {
			http.ServeContent(w, r, key, time.Time{}, rs)
			return
		}
		if _, err := io.Copy(w, rc); err != nil {
			slog.Warn("writing object", "key", key, "err", err)
		}
	})
}
