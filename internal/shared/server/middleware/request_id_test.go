package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boneai-backend/internal/shared/telemetry"
)

func TestRequestIDPropagation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, telemetry.RequestID(c.Request.Context()))
	})

	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{name: "reuses client id", inbound: "client-abc-123", reuse: true},
		{name: "generates when absent", inbound: ""},
		{name: "rejects control chars", inbound: "bad\tid"},
		{name: "rejects oversized", inbound: strings.Repeat("a", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.inbound != "" {
				req.Header.Set("X-Request-Id", tt.inbound)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			if resp.Body.String() != got {
				t.Fatalf("expected context id %q to match header, got %q", got, resp.Body.String())
			}
			if tt.reuse {
				if got != tt.inbound {
					t.Fatalf("expected %q, got %q", tt.inbound, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}
