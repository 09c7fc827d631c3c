package share

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"boneai-backend/internal/analyses"
	"boneai-backend/internal/mail"
	"boneai-backend/internal/report"
	"boneai-backend/internal/shared/auth"
	"boneai-backend/internal/shared/server/middleware"
	"boneai-backend/internal/shared/telemetry"
)

type fakeSender struct {
	err  error
	sent []mail.Message
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

func TestShareRejectsInvalidRecipientWithoutSending(t *testing.T) {
	sender := &fakeSender{}
	relay := &Relay{Sender: sender}
	err := relay.Share(context.Background(), Request{To: "not-an-email", Report: []byte("%PDF-")})
	if !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no send, got %d", len(sender.sent))
	}
}

func TestShareBuildsAttachmentAndEscapesNote(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	sender := &fakeSender{}
	relay := &Relay{Sender: sender, From: "Reports <r@example.com>"}
	ts := time.Date(2026, time.August, 9, 12, 0, 0, 0, time.UTC)
	err := relay.Share(context.Background(), Request{
		To:           " doctor@example.com ",
		Note:         "<script>alert(1)</script> please review",
		AnalysisType: "Fracture Detection",
		Timestamp:    ts,
		Report:       []byte("%PDF-1.3 body"),
	})
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To[0] != "doctor@example.com" || msg.From != "Reports <r@example.com>" {
		t.Fatalf("unexpected addressing %+v", msg)
	}
	if msg.Subject != "Bone Analysis Report: Fracture Detection" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "fracture_detection_report_2026-08-09.pdf" {
		t.Fatalf("unexpected attachments %+v", msg.Attachments)
	}
	if strings.Contains(msg.HTML, "<script>") || !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Fatalf("expected escaped note in body")
	}
	if !strings.Contains(msg.HTML, "August 9, 2026") {
		t.Fatalf("expected formatted date in body")
	}
}

func TestShareWrapsProviderFailure(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	relay := &Relay{Sender: &fakeSender{err: errors.New("resend: domain not verified")}}
	err := relay.Share(context.Background(), Request{To: "a@b.c", Report: []byte("%PDF-")})
	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if !strings.Contains(dErr.Detail, "domain not verified") {
		t.Fatalf("expected provider detail, got %q", dErr.Detail)
	}

	err = (&Relay{}).SendRaw(context.Background(), RawRequest{To: "a@b.c", Subject: "s", HTML: "h"})
	if !errors.Is(err, mail.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func renderPDF(t *testing.T) []byte {
	t.Helper()
	pdf, err := (&report.Renderer{}).Render(context.Background(), report.Report{
		Title:    "Bone Density",
		Sections: []report.Section{{Title: "Findings", Content: "T-score -1.2"}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return pdf
}

var testVerifier, _ = auth.NewVerifier("test-secret", "dev")

func newShareRouter(sender mail.Sender, repo analyses.Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(testVerifier))
	ah := analyses.NewHandler(&analyses.Service{Repo: repo})
	NewHandler(&Relay{Sender: sender}, &report.Renderer{}, ah).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func jsonRequest(path string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, jsonRequest(path, body))
	return resp
}

// postAs sends body with a bearer token for userID.
func postAs(t *testing.T, r http.Handler, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	token, err := testVerifier.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := jsonRequest(path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestShareViaEmailHandler(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	sender := &fakeSender{}
	r := newShareRouter(sender, analyses.NewMemoryRepo())
	pdf := base64.StdEncoding.EncodeToString(renderPDF(t))

	resp := post(r, "/api/v1/share-via-email", map[string]string{
		"to": "gp@example.com", "subject": "Results", "message": "see attached",
		"pdfBase64": "data:application/pdf;base64," + pdf, "analysisType": "Bone Density", "timestamp": "2026-01-02T03:04:05Z",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(sender.sent) != 1 || sender.sent[0].Attachments[0].Filename != "bone_density_report_2026-01-02.pdf" {
		t.Fatalf("unexpected sent messages %+v", sender.sent)
	}

	resp = post(r, "/api/v1/share-via-email", map[string]string{"to": "nobody", "pdfBase64": pdf})
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "invalid_recipient") {
		t.Fatalf("expected invalid_recipient 400, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = post(r, "/api/v1/share-via-email", map[string]string{"to": "gp@example.com", "pdfBase64": base64.StdEncoding.EncodeToString([]byte("not a pdf"))})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-PDF payload, got %d", resp.Code)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected no further sends, got %d", len(sender.sent))
	}
}

func TestSendEmailHandler(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	sender := &fakeSender{}
	r := newShareRouter(sender, analyses.NewMemoryRepo())
	resp := post(r, "/api/v1/send-email", map[string]any{
		"to": "gp@example.com", "subject": "Hi", "html": "<p>Hello</p>",
		"attachments": []map[string]string{{"filename": "notes.txt", "content": base64.StdEncoding.EncodeToString([]byte("notes")), "contentType": "text/plain"}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if string(sender.sent[0].Attachments[0].Content) != "notes" {
		t.Fatalf("unexpected attachment content %q", sender.sent[0].Attachments[0].Content)
	}

	failing := newShareRouter(&fakeSender{err: errors.New("rate limited by provider")}, analyses.NewMemoryRepo())
	resp = post(failing, "/api/v1/send-email", map[string]any{"to": "gp@example.com", "subject": "Hi", "html": "<p>x</p>"})
	if resp.Code != http.StatusBadGateway || !strings.Contains(resp.Body.String(), "rate limited by provider") {
		t.Fatalf("expected 502 with provider detail, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestShareStoredAnalysis(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	repo := analyses.NewMemoryRepo()
	_ = repo.Create(context.Background(), analyses.Record{
		ID: "analysis-3", UserID: "user-1", TaskID: "arthritis-assessment", TaskName: "Arthritis Assessment",
		ResultText: "<b>Findings</b>: mild joint space narrowing", CreatedAt: time.Date(2026, time.May, 5, 0, 0, 0, 0, time.UTC),
	})
	sender := &fakeSender{}
	r := newShareRouter(sender, repo)

	guest := post(r, "/api/v1/analyses/analysis-3/share?userId=user-1", map[string]string{"to": "rheum@example.com"})
	if guest.Code != http.StatusUnauthorized || len(sender.sent) != 0 {
		t.Fatalf("expected guest share to be refused, got %d", guest.Code)
	}

	resp := postAs(t, r, "/api/v1/analyses/analysis-3/share", "user-1", map[string]string{"to": "rheum@example.com", "message": "FYI"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	att := sender.sent[0].Attachments[0]
	if att.Filename != "arthritis_assessment_report_2026-05-05.pdf" {
		t.Fatalf("unexpected filename %q", att.Filename)
	}
	if pages, err := report.Inspect(att.Content); err != nil || pages != 1 {
		t.Fatalf("expected a one page PDF, got %d pages err=%v", pages, err)
	}
}
