// Package mailer delivers generated documents by email.
//
// Three providers implement Mailer: SMTPMailer (net/smtp with STARTTLS or
// implicit TLS), SendGridMailer (v3 mail send API) and SESMailer (SES v2
// raw messages). SMTP and SES share the MIME builder in mime.go, so both
// send the same multipart/mixed message with a text/html alternative and
// the PDF attachment.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Sentinel errors for mail delivery.
var (
	ErrInvalidMessage  = errors.New("invalid mail message")
	ErrSend            = errors.New("mail delivery failed")
	ErrUnknownProvider = errors.New("unknown mail provider")
	ErrConfig          = errors.New("invalid mail configuration")
)

// Attachment is a file sent with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single-recipient email.
type Message struct {
	To          mail.Address
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Validate checks that the message can be delivered.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if _, err := mail.ParseAddress(m.To.Address); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To.Address, err)
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%w: subject contains a line break", ErrInvalidMessage)
	}
	if m.Text == "" && m.HTML == "" && len(m.Attachments) == 0 {
		return fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	for _, a := range m.Attachments {
		if a.Filename == "" || strings.ContainsAny(a.Filename, "\"\r\n") {
			return fmt.Errorf("%w: attachment name %q", ErrInvalidMessage, a.Filename)
		}
	}
	return nil
}

// Receipt identifies an accepted message.
type Receipt struct {
	MessageID string
	Provider  string
}

// Mailer sends messages through one provider.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (*Receipt, error)
	Provider() string
}

// Sender is the From identity of outgoing mail.
type Sender struct {
	Name    string
	Address string
}

// Validate checks the sender address.
func (s Sender) Validate() error {
	if _, err := mail.ParseAddress(s.Address); err != nil {
		return fmt.Errorf("%w: from address %q: %v", ErrConfig, s.Address, err)
	}
	return nil
}

func (s Sender) mailAddress() mail.Address {
	return mail.Address{Name: s.Name, Address: s.Address}
}

// domain returns the host part of the sender address.
func (s Sender) domain() string {
	if i := strings.LastIndexByte(s.Address, '@'); i >= 0 && i < len(s.Address)-1 {
		return s.Address[i+1:]
	}
	return "localhost"
}
