package mail

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no email provider is set up.
var ErrNotConfigured = errors.New("email provider not configured")

// Message is one outbound transactional email.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Attachment is sent inline as base64 by the provider.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers messages and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// PlaceholderSender is used when no provider is configured.
type PlaceholderSender struct{}

func (PlaceholderSender) Send(ctx context.Context, msg Message) (string, error) {
	return "", ErrNotConfigured
}
