// Package callback reports the terminal outcome of a generation job to the
// caller's callback URL.
package callback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/metrics"
)

// Payload statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// DefaultTimeout bounds a single callback request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a rejected response is logged.
const maxErrorBody = 512

// Sentinel errors for callback delivery.
var (
	ErrInvalidURL = errors.New("invalid callback url")
	ErrDelivery   = errors.New("callback delivery failed")
	ErrRejected   = errors.New("callback rejected")
)

// Metadata describes a delivered document.
type Metadata struct {
	MessageID   string `json:"messageId"`
	GeneratedAt string `json:"generatedAt"`
	Email       string `json:"email"`
	FileURL     string `json:"fileUrl"`
}

// Payload is the JSON body posted to the callback URL.
type Payload struct {
	CertificateID string    `json:"certificateId"`
	Status        string    `json:"status"`
	Metadata      *Metadata `json:"metadata,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Success builds a "sent" payload.
func Success(certificateID string, meta Metadata) *Payload {
	return &Payload{CertificateID: certificateID, Status: StatusSent, Metadata: &meta}
}

// Failure builds a "failed" payload carrying err's message.
func Failure(certificateID string, err error) *Payload {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Payload{CertificateID: certificateID, Status: StatusFailed, Error: msg}
}

// Notifier posts payloads to callback URLs. Each Notify is a single attempt.
type Notifier struct {
	httpClient *http.Client
	client     *resty.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient sets the transport client. Its Timeout is replaced by the
// notifier's.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}

	// Retries stay at resty's default of zero.
	n.client = resty.NewWithClient(n.httpClient).
		SetTimeout(n.timeout).
		SetLogger(n.logger.Sugar())
	return n
}

// Notify posts p to target as JSON. A transport error or a non-2xx status
// is returned after being logged and counted; it is never retried.
func (n *Notifier) Notify(ctx context.Context, target string, p *Payload) error {
	err := n.post(ctx, target, p)

	result := "ok"
	if err != nil {
		result = "error"
		n.logger.Warn("callback failed",
			zap.String("certificate_id", p.CertificateID),
			zap.String("status", p.Status),
			zap.String("url", redact(target)),
			zap.Error(err))
	} else {
		n.logger.Info("callback sent",
			zap.String("certificate_id", p.CertificateID),
			zap.String("status", p.Status))
	}
	metrics.CallbacksTotal.WithLabelValues(p.Status, result).Inc()
	return err
}

func (n *Notifier) post(ctx context.Context, target string, p *Payload) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, redact(target))
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		Post(u.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	if !resp.IsSuccess() {
		snippet := resp.Body()
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode(), bytes.TrimSpace(snippet))
	}
	return nil
}

// redact drops credentials and query from a URL before logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
