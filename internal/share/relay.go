package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"boneai-backend/internal/mail"
	"boneai-backend/internal/report"
	"boneai-backend/internal/shared/metrics"
	"boneai-backend/internal/shared/telemetry"
)

var ErrInvalidRecipient = errors.New("invalid recipient email")

// DeliveryError carries the provider's own failure detail.
type DeliveryError struct {
	Detail string
	Err    error
}

func (e *DeliveryError) Error() string {
	return "email delivery failed: " + e.Detail
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Request shares a rendered report with one recipient.
type Request struct {
	To           string
	Subject      string
	Note         string
	AnalysisType string
	Timestamp    time.Time
	Report       []byte
}

// RawRequest is an arbitrary email forwarded as-is.
type RawRequest struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []mail.Attachment
}

// Relay wraps reports into the share email and hands them to a mail.Sender. It never retries.
type Relay struct {
	Sender mail.Sender
	From   string
}

var shareTemplate = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, Helvetica, sans-serif; color: #1f2937;">
    <h2 style="color: #1d4ed8;">Bone Analysis Report</h2>
    <p>A bone imaging analysis report has been shared with you.</p>
    <table style="border-collapse: collapse; margin: 12px 0;">
      <tr><td style="padding: 4px 12px 4px 0;"><b>Analysis type</b></td><td>{{.AnalysisType}}</td></tr>
      <tr><td style="padding: 4px 12px 4px 0;"><b>Date</b></td><td>{{.Date}}</td></tr>
    </table>
    {{if .Note}}<div style="background: #f3f4f6; padding: 12px; border-radius: 6px; white-space: pre-wrap;">{{.Note}}</div>{{end}}
    <p>The full report is attached as a PDF.</p>
    <p style="font-size: 12px; color: #6b7280;">This report was generated by an AI model and is not a medical diagnosis.</p>
  </body>
</html>
`))

type shareView struct {
	AnalysisType string
	Date         string
	Note         string
}

// ValidRecipient is the minimal shape check applied to every recipient.
func ValidRecipient(to string) bool {
	to = strings.TrimSpace(to)
	return to != "" && strings.Contains(to, "@")
}

// Share emails the report as a PDF attachment.
func (r *Relay) Share(ctx context.Context, req Request) error {
	if !ValidRecipient(req.To) {
		return ErrInvalidRecipient
	}
	if len(req.Report) == 0 {
		return errors.New("report is required")
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	analysisType := strings.TrimSpace(req.AnalysisType)
	if analysisType == "" {
		analysisType = "Bone Analysis"
	}

	var body bytes.Buffer
	if err := shareTemplate.Execute(&body, shareView{
		AnalysisType: analysisType,
		Date:         ts.UTC().Format("January 2, 2006"),
		Note:         strings.TrimSpace(req.Note),
	}); err != nil {
		return fmt.Errorf("share template: %w", err)
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Bone Analysis Report: " + analysisType
	}
	return r.deliver(ctx, mail.Message{
		From:    r.From,
		To:      []string{strings.TrimSpace(req.To)},
		Subject: subject,
		HTML:    body.String(),
		Attachments: []mail.Attachment{{
			Filename:    report.AttachmentName(analysisType, ts),
			ContentType: "application/pdf",
			Content:     req.Report,
		}},
	})
}

// SendRaw forwards a caller-built email.
func (r *Relay) SendRaw(ctx context.Context, req RawRequest) error {
	if !ValidRecipient(req.To) {
		return ErrInvalidRecipient
	}
	return r.deliver(ctx, mail.Message{
		From:        r.From,
		To:          []string{strings.TrimSpace(req.To)},
		Subject:     req.Subject,
		HTML:        req.HTML,
		Text:        req.Text,
		Attachments: req.Attachments,
	})
}

func (r *Relay) deliver(ctx context.Context, msg mail.Message) error {
	sender := r.Sender
	if sender == nil {
		sender = mail.PlaceholderSender{}
	}
	id, err := sender.Send(ctx, msg)
	if err != nil {
		metrics.IncShareFailed()
		telemetry.Error("share.delivery_failed", map[string]any{
			"error":       err.Error(),
			"attachments": len(msg.Attachments),
		})
		if errors.Is(err, mail.ErrNotConfigured) {
			return err
		}
		return &DeliveryError{Detail: err.Error(), Err: err}
	}
	metrics.IncShareSent()
	telemetry.Info("share.delivered", map[string]any{
		"message_id":  id,
		"attachments": len(msg.Attachments),
	})
	return nil
}
