package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/auth"
	"github.com/evcraddock/house-market/internal/cache"
	"github.com/evcraddock/house-market/internal/logging"
	"github.com/evcraddock/house-market/internal/storage"
	"github.com/evcraddock/house-market/internal/web"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the HTTP server for the web UI and JSON API.

Configuration is read from HM_* environment variables, optionally loaded
from a .env file in the working directory:

  HM_BASE_URL      public URL of the site (default http://localhost:8080)
  HM_DEV_MODE      "true" logs emails and codes instead of sending them
  HM_JWT_SECRET    signing key for access tokens (required outside dev mode)
  HM_REDIS_URL     redis:// URL for the shared cache (default: in-memory)
  HM_STORAGE_DIR   directory for uploaded images (default ~/.config/hm/files)
  HM_SMTP_*        outgoing mail settings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")

	return cmd
}

func runServe(ctx context.Context, port int) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := auth.ConfigFromEnv()
	if err != nil {
		return err
	}
	logging.Setup(cfg.DevMode)

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newCacheStore(ctx, os.Getenv("HM_REDIS_URL"))
	if err != nil {
		return err
	}
	defer closeStore()

	dir, err := storageDir()
	if err != nil {
		return err
	}
	files, err := storage.NewLocalStore(dir, cfg.JWTSecret, cfg.BaseURL)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Deps{DB: database, Config: cfg, Cache: store, Files: files})
	if err != nil {
		return err
	}

	go runCleanup(ctx, srv)

	httpSrv := srv.HTTPServer(fmt.Sprintf(":%d", port))
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "base_url", cfg.BaseURL, "dev_mode", cfg.DevMode)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// newCacheStore connects to Redis when url is set, else uses process memory.
func newCacheStore(ctx context.Context, url string) (cache.Store, func(), error) {
	if url == "" {
		slog.Info("using in-memory cache")
		return cache.NewMemoryStore(), func() {}, nil
	}

	store, err := cache.NewRedisStore(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing redis", "err", err)
		}
	}, nil
}

// storageDir returns HM_STORAGE_DIR or ~/.config/hm/files.
func storageDir() (string, error) {
	if v := os.Getenv("HM_STORAGE_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hm", "files"), nil
}

// runCleanup purges expired sessions and codes until ctx is done.
func runCleanup(ctx context.Context, srv *web.Server) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := srv.Cleanup(); err != nil {
				slog.Error("cleanup failed", "err", err)
			}
		}
	}
}
