package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// ProviderSES names the Amazon SES provider.
const ProviderSES = "ses"

// sesAPI is the subset of the SES v2 client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends raw MIME messages through Amazon SES v2.
type SESMailer struct {
	client sesAPI
	from   Sender
	logger *zap.Logger
	now    func() time.Time
}

// NewSESMailer loads the default AWS configuration for region and creates
// an SESMailer.
func NewSESMailer(ctx context.Context, region string, from Sender, logger *zap.Logger) (*SESMailer, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aws config: %v", ErrConfig, err)
	}

	return newSESMailer(sesv2.NewFromConfig(cfg), from, logger), nil
}

func newSESMailer(client sesAPI, from Sender, logger *zap.Logger) *SESMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SESMailer{client: client, from: from, logger: logger, now: time.Now}
}

// Provider returns "ses".
func (m *SESMailer) Provider() string { return ProviderSES }

// Send delivers msg as a raw message.
// The receipt carries the SES message id.
func (m *SESMailer) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	raw, err := buildMIME(m.from, msg, newMessageID(m.from.domain()), m.now())
	if err != nil {
		return nil, fmt.Errorf("%w: building message: %v", ErrSend, err)
	}

	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from.Address),
		Destination:      &types.Destination{ToAddresses: []string{msg.To.Address}},
		Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	})
	if err != nil {
		m.logger.Error("ses delivery failed", zap.String("to", msg.To.Address), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSend, err)
	}

	messageID := aws.ToString(out.MessageId)
	m.logger.Info("email sent",
		zap.String("provider", ProviderSES),
		zap.String("to", msg.To.Address),
		zap.String("message_id", messageID))
	return &Receipt{MessageID: messageID, Provider: ProviderSES}, nil
}

// Compile-time interface check.
var _ Mailer = (*SESMailer)(nil)
