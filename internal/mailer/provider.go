package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config selects and configures a provider.
type Config struct {
	Provider     string // smtp (default), sendgrid or ses
	From         Sender
	SMTP         SMTPConfig
	SendGridKey  string
	SendGridHost string
	SESRegion    string
}

// New builds the Mailer named by cfg.Provider.
// Returns ErrUnknownProvider for unsupported names.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderSMTP:
		return NewSMTPMailer(cfg.SMTP, cfg.From, logger)
	case ProviderSendGrid:
		return NewSendGridMailer(cfg.SendGridKey, cfg.SendGridHost, cfg.From, logger)
	case ProviderSES:
		return NewSESMailer(ctx, cfg.SESRegion, cfg.From, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderSMTP, ProviderSendGrid, ProviderSES}
}
