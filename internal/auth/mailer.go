package auth

import (
	"fmt"
	"log/slog"

	"github.com/evcraddock/house-market/internal/email"
)

// Mailer sends verification codes by email.
type Mailer struct {
	config Config
	send   func(cfg email.SMTPConfig, to []string, subject, body string) error
}

// NewMailer creates a mailer with the given config.
func NewMailer(config Config) *Mailer {
	return &Mailer{config: config, send: email.Send}
}

// SMTP returns the SMTP settings carried by the config.
func (c Config) SMTP() email.SMTPConfig {
	return email.SMTPConfig{
		Host: c.SMTPHost,
		Port: c.SMTPPort,
		User: c.SMTPUser,
		Pass: c.SMTPPass,
		From: c.SMTPFrom,
	}
}

// SendCode emails a verification code, or logs it in dev mode.
func (m *Mailer) SendCode(to string, purpose Purpose, code string) error {
	if m.config.DevMode {
		slog.Info("verification code", "email", to, "purpose", string(purpose), "code", code)
		return nil
	}

	subject, intro := "House Market: confirm your account", "Use this code to confirm your House Market account:"
	if purpose == PurposeReset {
		subject, intro = "House Market: reset your password", "Use this code to reset your House Market password:"
	}

	body := fmt.Sprintf("%s\n\n    %s\n\nThe code expires in 15 minutes and can only be used once.", intro, code)
	if err := m.send(m.config.SMTP(), []string{to}, subject, body); err != nil {
		return fmt.Errorf("sending %s code: %w", purpose, err)
	}
	return nil
}
