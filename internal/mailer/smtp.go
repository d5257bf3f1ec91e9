package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ProviderSMTP names the SMTP provider.
const ProviderSMTP = "smtp"

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ImplicitTLS bool // TLS from the first byte (port 465) instead of STARTTLS
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg    SMTPConfig
	from   Sender
	logger *zap.Logger
	now    func() time.Time
	dial   func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewSMTPMailer creates an SMTPMailer.
// Returns ErrConfig if the host, port or sender is invalid.
func NewSMTPMailer(cfg SMTPConfig, from Sender, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: smtp host is required", ErrConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: smtp port %d out of range", ErrConfig, cfg.Port)
	}
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{}
	return &SMTPMailer{
		cfg:    cfg,
		from:   from,
		logger: logger,
		now:    time.Now,
		dial:   dialer.DialContext,
	}, nil
}

// Provider returns "smtp".
func (m *SMTPMailer) Provider() string { return ProviderSMTP }

// Send delivers msg and returns the generated Message-ID.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	messageID := newMessageID(m.from.domain())
	raw, err := buildMIME(m.from, msg, messageID, m.now())
	if err != nil {
		return nil, fmt.Errorf("%w: building message: %v", ErrSend, err)
	}

	if err := m.deliver(ctx, msg.To.Address, raw); err != nil {
		m.logger.Error("smtp delivery failed",
			zap.String("to", msg.To.Address),
			zap.String("host", m.cfg.Host),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSend, err)
	}

	m.logger.Info("email sent",
		zap.String("provider", ProviderSMTP),
		zap.String("to", msg.To.Address),
		zap.String("message_id", messageID))
	return &Receipt{MessageID: messageID, Provider: ProviderSMTP}, nil
}

func (m *SMTPMailer) deliver(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	if m.cfg.ImplicitTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !m.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starting TLS: %w", err)
			}
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(m.from.Address); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("opening data writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data writer: %w", err)
	}

	return client.Quit()
}

// Compile-time interface check.
var _ Mailer = (*SMTPMailer)(nil)
