package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// ProviderSendGrid names the SendGrid provider.
const ProviderSendGrid = "sendgrid"

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey string
	host   string
	from   Sender
	logger *zap.Logger
}

// NewSendGridMailer creates a SendGridMailer.
// host overrides the API base URL; empty means the public endpoint.
func NewSendGridMailer(apiKey, host string, from Sender, logger *zap.Logger) (*SendGridMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: sendgrid api key is required", ErrConfig)
	}
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if host == "" {
		host = sendGridHost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridMailer{apiKey: apiKey, host: host, from: from, logger: logger}, nil
}

// Provider returns "sendgrid".
func (m *SendGridMailer) Provider() string { return ProviderSendGrid }

// Send posts msg to the mail send endpoint.
// The receipt carries the X-Message-Id response header.
func (m *SendGridMailer) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	req := sendgrid.GetRequest(m.apiKey, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		m.logger.Error("sendgrid request failed", zap.String("to", msg.To.Address), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSend, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		m.logger.Error("sendgrid rejected message",
			zap.String("to", msg.To.Address),
			zap.Int("status_code", res.StatusCode),
			zap.String("body", res.Body))
		return nil, fmt.Errorf("%w: sendgrid returned status %d", ErrSend, res.StatusCode)
	}

	messageID := headerValue(res.Headers, "X-Message-Id")
	m.logger.Info("email sent",
		zap.String("provider", ProviderSendGrid),
		zap.String("to", msg.To.Address),
		zap.String("message_id", messageID))
	return &Receipt{MessageID: messageID, Provider: ProviderSendGrid}, nil
}

func (m *SendGridMailer) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(sgmail.NewEmail(m.from.Name, m.from.Address))
	v3.AddPersonalizations(p)

	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range msg.Attachments {
		v3.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Data),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return v3
}

func headerValue(headers map[string][]string, key string) string {
	if values := http.Header(headers).Values(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// Compile-time interface check.
var _ Mailer = (*SendGridMailer)(nil)
