package share

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/analyses"
	"boneai-backend/internal/imagedata"
	"boneai-backend/internal/mail"
	"boneai-backend/internal/report"
	"boneai-backend/internal/shared/server/respond"
)

// Handler serves the email endpoints.
type Handler struct {
	Relay    *Relay
	Renderer *report.Renderer
	Analyses *analyses.Handler
}

func NewHandler(relay *Relay, renderer *report.Renderer, analysesHandler *analyses.Handler) *Handler {
	return &Handler{Relay: relay, Renderer: renderer, Analyses: analysesHandler}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/share-via-email", h.shareViaEmail)
	rg.POST("/send-email", h.sendEmail)
	if h.Analyses != nil && h.Renderer != nil {
		rg.POST("/analyses/:id/share", h.shareStored)
	}
}

type shareViaEmailRequest struct {
	To           string `json:"to"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	PDFBase64    string `json:"pdfBase64"`
	AnalysisType string `json:"analysisType"`
	Timestamp    string `json:"timestamp"`
}

func (h *Handler) shareViaEmail(c *gin.Context) {
	var body shareViaEmailRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "request body must be JSON", nil)
		return
	}
	if !ValidRecipient(body.To) {
		writeShareError(c, ErrInvalidRecipient)
		return
	}

	pdf, err := decodePDF(body.PDFBase64)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "pdfBase64 must be a base64 encoded PDF", []map[string]string{
			{"field": "pdfBase64", "issue": "invalid"},
		})
		return
	}

	err = h.Relay.Share(c.Request.Context(), Request{
		To:           body.To,
		Subject:      body.Subject,
		Note:         body.Message,
		AnalysisType: body.AnalysisType,
		Timestamp:    parseTimestamp(body.Timestamp),
		Report:       pdf,
	})
	if err != nil {
		writeShareError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

type rawAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type sendEmailRequest struct {
	To          string          `json:"to"`
	Subject     string          `json:"subject"`
	HTML        string          `json:"html"`
	Text        string          `json:"text"`
	Attachments []rawAttachment `json:"attachments"`
}

func (h *Handler) sendEmail(c *gin.Context) {
	var body sendEmailRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "request body must be JSON", nil)
		return
	}
	if strings.TrimSpace(body.Subject) == "" || strings.TrimSpace(body.HTML) == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "subject and html are required", nil)
		return
	}

	attachments := make([]mail.Attachment, 0, len(body.Attachments))
	for _, a := range body.Attachments {
		content, err := imagedata.Normalize(a.Content)
		if err != nil || strings.TrimSpace(a.Filename) == "" {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "attachments need a filename and base64 content", []map[string]string{
				{"field": "attachments", "issue": "invalid"},
			})
			return
		}
		contentType := a.ContentType
		if contentType == "" && strings.HasPrefix(strings.TrimSpace(a.Content), "data:") {
			contentType = content.MediaType
		}
		attachments = append(attachments, mail.Attachment{
			Filename:    a.Filename,
			ContentType: contentType,
			Content:     content.Bytes,
		})
	}

	err := h.Relay.SendRaw(c.Request.Context(), RawRequest{
		To:          body.To,
		Subject:     body.Subject,
		HTML:        body.HTML,
		Text:        body.Text,
		Attachments: attachments,
	})
	if err != nil {
		writeShareError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

type shareStoredRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *Handler) shareStored(c *gin.Context) {
	var body shareStoredRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "request body must be JSON", nil)
		return
	}
	if !ValidRecipient(body.To) {
		writeShareError(c, ErrInvalidRecipient)
		return
	}
	rec, ok := h.Analyses.LoadOwned(c)
	if !ok {
		return
	}

	pdf, err := h.Renderer.Render(c.Request.Context(), report.FromRecord(rec))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to render report", nil)
		return
	}
	err = h.Relay.Share(c.Request.Context(), Request{
		To:           body.To,
		Subject:      body.Subject,
		Note:         body.Message,
		AnalysisType: rec.TaskName,
		Timestamp:    rec.CreatedAt,
		Report:       pdf,
	})
	if err != nil {
		writeShareError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func writeShareError(c *gin.Context, err error) {
	var dErr *DeliveryError
	switch {
	case errors.Is(err, ErrInvalidRecipient):
		respond.Error(c, http.StatusBadRequest, "invalid_recipient", "recipient email address is invalid", []map[string]string{
			{"field": "to", "issue": "invalid"},
		})
	case errors.Is(err, mail.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "email_unavailable", "email delivery is not configured", nil)
	case errors.As(err, &dErr):
		respond.Error(c, http.StatusBadGateway, "delivery_failed", "failed to send email", gin.H{"detail": dErr.Detail})
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to send email", nil)
	}
}

func decodePDF(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "base64,"); i >= 0 {
		raw = raw[i+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if _, err := report.Inspect(data); err != nil {
		return nil, err
	}
	return data, nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
