package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	resendsdk "github.com/resend/resend-go/v2"

	"boneai-backend/internal/mail"
	"boneai-backend/internal/shared/telemetry"
)

const defaultTimeout = 30 * time.Second

// Options configures the Resend sender.
type Options struct {
	APIKey string
	From   string
	// BaseURL overrides the API endpoint; tests point it at httptest.
	BaseURL string
	Timeout time.Duration
}

// Sender delivers mail through the Resend API.
type Sender struct {
	client *resendsdk.Client
	from   string
}

// New builds a Sender. The API key and default From address are required.
func New(opts Options) (*Sender, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("resend api key is required")
	}
	if strings.TrimSpace(opts.From) == "" {
		return nil, errors.New("resend from address is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resendsdk.NewCustomClient(&http.Client{Timeout: timeout}, opts.APIKey)
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("resend base url: %w", err)
		}
		client.BaseURL = base
	}
	return &Sender{client: client, from: opts.From}, nil
}

// Send delivers msg and returns the Resend message id.
func (s *Sender) Send(ctx context.Context, msg mail.Message) (string, error) {
	from := msg.From
	if from == "" {
		from = s.from
	}
	req := &resendsdk.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resendsdk.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	sent, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	telemetry.Info("mail.sent", map[string]any{
		"provider":    "resend",
		"message_id":  sent.Id,
		"recipients":  len(msg.To),
		"attachments": len(msg.Attachments),
	})
	return sent.Id, nil
}

var _ mail.Sender = (*Sender)(nil)
