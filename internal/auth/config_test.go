package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/house-market/internal/email"
)

func TestConfigFromEnvDevDefaults(t *testing.T) {
	t.Setenv("HM_DEV_MODE", "true")
	t.Setenv("HM_JWT_SECRET", "")
	t.Setenv("HM_BASE_URL", "")
	t.Setenv("HM_ACCESS_TTL", "")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !cfg.DevMode {
		t.Error("expected dev mode")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if len(cfg.JWTSecret) != 32 {
		t.Errorf("dev secret length = %d, want 32", len(cfg.JWTSecret))
	}
	if cfg.AccessTTL != defaultAccessTTL {
		t.Errorf("ttl = %v", cfg.AccessTTL)
	}
	if cfg.SMTPPort != "587" {
		t.Errorf("smtp port = %q", cfg.SMTPPort)
	}
}

func TestConfigFromEnvProduction(t *testing.T) {
	t.Setenv("HM_DEV_MODE", "")
	t.Setenv("HM_SMTP_HOST", "smtp.example.com")
	t.Setenv("HM_JWT_SECRET", "")

	if _, err := ConfigFromEnv(); err == nil || !strings.Contains(err.Error(), "HM_JWT_SECRET") {
		t.Fatalf("err = %v, want missing secret error", err)
	}

	t.Setenv("HM_JWT_SECRET", "prod-secret")
	t.Setenv("HM_ACCESS_TTL", "5m")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if string(cfg.JWTSecret) != "prod-secret" {
		t.Errorf("secret = %q", cfg.JWTSecret)
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Errorf("ttl = %v", cfg.AccessTTL)
	}

	t.Setenv("HM_ACCESS_TTL", "soon")
	if _, err := ConfigFromEnv(); err == nil {
		t.Error("expected error for bad ttl")
	}
}

func TestConfigRequiresSMTPOutsideDev(t *testing.T) {
	t.Setenv("HM_DEV_MODE", "")
	t.Setenv("HM_SMTP_HOST", "")
	t.Setenv("HM_JWT_SECRET", "s")
	t.Setenv("HM_ACCESS_TTL", "")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error without SMTP host")
	}
}

func TestMailerDevModeDoesNotSend(t *testing.T) {
	m := NewMailer(Config{DevMode: true})
	if err := m.SendCode("a@example.com", PurposeConfirm, "123456"); err != nil {
		t.Errorf("dev send code: %v", err)
	}
}

func TestMailerSendsResetCode(t *testing.T) {
	m := NewMailer(Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPFrom: "hm@example.com"})

	var gotSubject, gotBody string
	m.send = func(cfg email.SMTPConfig, to []string, subject, body string) error {
		if cfg.Host != "smtp.example.com" || len(to) != 1 || to[0] != "a@example.com" {
			t.Errorf("cfg = %+v, to = %v", cfg, to)
		}
		gotSubject, gotBody = subject, body
		return nil
	}

	if err := m.SendCode("a@example.com", PurposeReset, "654321"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(gotSubject, "reset your password") {
		t.Errorf("subject = %q", gotSubject)
	}
	if !strings.Contains(gotBody, "654321") {
		t.Errorf("body missing code: %q", gotBody)
	}
}
