// Package auth provides accounts, verification codes, sessions, access tokens,
// passkeys and the HTTP middleware that resolves and gates the current user.
package auth

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"
)

const defaultAccessTTL = 15 * time.Minute

// Config holds authentication configuration.
type Config struct {
	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	SMTPFrom  string
	DevMode   bool
	BaseURL   string // e.g. http://localhost:8080
	JWTSecret []byte
	AccessTTL time.Duration
}

// ConfigFromEnv creates a Config from HM_* environment variables.
// In dev mode a missing HM_JWT_SECRET is replaced by a random per-process key.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		SMTPHost:  os.Getenv("HM_SMTP_HOST"),
		SMTPPort:  envOrDefault("HM_SMTP_PORT", "587"),
		SMTPUser:  os.Getenv("HM_SMTP_USER"),
		SMTPPass:  os.Getenv("HM_SMTP_PASS"),
		SMTPFrom:  os.Getenv("HM_SMTP_FROM"),
		DevMode:   os.Getenv("HM_DEV_MODE") == "true",
		BaseURL:   envOrDefault("HM_BASE_URL", "http://localhost:8080"),
		JWTSecret: []byte(os.Getenv("HM_JWT_SECRET")),
		AccessTTL: defaultAccessTTL,
	}

	if v := os.Getenv("HM_ACCESS_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing HM_ACCESS_TTL: %w", err)
		}
		cfg.AccessTTL = ttl
	}

	if len(cfg.JWTSecret) == 0 {
		if !cfg.DevMode {
			return Config{}, fmt.Errorf("HM_JWT_SECRET is required outside dev mode")
		}
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return Config{}, fmt.Errorf("generating dev jwt secret: %w", err)
		}
		cfg.JWTSecret = secret
	}

	if !cfg.DevMode && cfg.SMTPHost == "" {
		return Config{}, fmt.Errorf("HM_SMTP_HOST is required outside dev mode")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
