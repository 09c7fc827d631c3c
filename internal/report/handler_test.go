package report

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"boneai-backend/internal/analyses"
	"boneai-backend/internal/shared/auth"
	"boneai-backend/internal/shared/server/middleware"
)

var testVerifier, _ = auth.NewVerifier("test-secret", "dev")

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := testVerifier.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func newReportRouter(repo analyses.Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(testVerifier))
	api := r.Group("/api/v1")
	ah := analyses.NewHandler(&analyses.Service{Repo: repo})
	NewHandler(&Renderer{}, ah).RegisterRoutes(api)
	return r
}

func TestRenderSuppliedReport(t *testing.T) {
	r := newReportRouter(analyses.NewMemoryRepo())
	body := `{"title":"Spine Alignment","timestamp":"2026-06-01T10:00:00Z","sections":[{"title":"Findings","content":"Mild curvature"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "spine_alignment_2026-06-01.pdf") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF body")
	}
}

func TestRenderSuppliedReportRequiresSections(t *testing.T) {
	r := newReportRouter(analyses.NewMemoryRepo())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRenderStoredReport(t *testing.T) {
	repo := analyses.NewMemoryRepo()
	_ = repo.Create(context.Background(), analyses.Record{
		ID:         "analysis-9",
		UserID:     "user-1",
		TaskID:     "joint-dislocation",
		TaskName:   "Joint Dislocation",
		ResultText: "<b>Findings</b>: shoulder reduced",
		CreatedAt:  time.Date(2026, time.July, 7, 0, 0, 0, 0, time.UTC),
	})
	r := newReportRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/analysis-9/report", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "bone_analysis_report_joint_dislocation_2026-07-07.pdf") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/analyses/analysis-9/report", nil)
	req.Header.Set("Authorization", bearer(t, "someone-else"))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/analyses/analysis-9/report?userId=user-1", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a guest naming the owner, got %d", resp.Code)
	}
}
