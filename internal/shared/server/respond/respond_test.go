package respond

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/shared/telemetry"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	defer telemetry.SetOutput(io.Discard)()

	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		Error(c, http.StatusBadRequest, CodeValidation, "taskId is required", []string{"taskId"})
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var payload ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != CodeValidation || payload.Error.Message != "taskId is required" {
		t.Fatalf("unexpected envelope %+v", payload.Error)
	}
}

func TestAttachmentHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/pdf", func(c *gin.Context) {
		Attachment(c, "application/pdf", "fracture_detection_2026-01-01.pdf", []byte("%PDF-1.4"))
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/pdf", nil))

	if got := resp.Header().Get("Content-Disposition"); got != "attachment; filename=fracture_detection_2026-01-01.pdf" {
		t.Fatalf("unexpected disposition %q", got)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
}
