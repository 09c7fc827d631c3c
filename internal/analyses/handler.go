package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/imagedata"
	"boneai-backend/internal/llm"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/shared/server/middleware"
	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
}

type analyzeRequest struct {
	Image    string `json:"image"`
	TaskID   string `json:"taskId"`
	UserType string `json:"userType"`
	UserID   string `json:"userId"`
}

type analyzeResponse struct {
	Analysis   string `json:"analysis"`
	TaskID     string `json:"taskId"`
	TaskName   string `json:"taskName"`
	AnalysisID string `json:"analysisId,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

func (h *Handler) analyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "request body must be JSON", nil)
		return
	}
	c.Set("taskId", body.TaskID)

	ctx := c.Request.Context()
	out, err := h.Svc.Analyze(ctx, Request{
		Image:  body.Image,
		TaskID: body.TaskID,
		Role:   prompts.ParseRole(body.UserType),
		UserID: middleware.ResolveUserID(c, body.UserID),
	})
	if err != nil {
		writeAnalyzeError(c, err)
		return
	}
	if out.AnalysisID != "" {
		c.Set("analysisId", out.AnalysisID)
	}

	respond.OK(c, analyzeResponse{
		Analysis:   out.Analysis,
		TaskID:     out.TaskID,
		TaskName:   out.TaskTitle,
		AnalysisID: out.AnalysisID,
		ImageURL:   out.ImageURL,
	})
}

func writeAnalyzeError(c *gin.Context, err error) {
	var vErr *ValidationError
	var upErr *llm.UpstreamError
	switch {
	case errors.As(err, &vErr):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, vErr.Error(), []map[string]string{
			{"field": vErr.Field, "issue": vErr.Reason},
		})
	case errors.Is(err, imagedata.ErrInvalidImageData):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "image must be base64 encoded image data", []map[string]string{
			{"field": "image", "issue": "invalid"},
		})
	case errors.Is(err, llm.ErrNotImplemented):
		respond.Error(c, http.StatusServiceUnavailable, "llm_unavailable", "analysis provider is not configured", nil)
	case errors.As(err, &upErr):
		telemetry.Error("analysis.upstream_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"status":     upErr.StatusCode,
			"body":       upErr.Body,
		})
		respond.Error(c, http.StatusBadGateway, "analysis_failed", "failed to analyze image", nil)
	default:
		telemetry.Error("analysis.failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusBadGateway, "analysis_failed", "failed to analyze image", nil)
	}
}

func (h *Handler) getAnalysis(c *gin.Context) {
	rec, ok := h.LoadOwned(c)
	if !ok {
		return
	}
	respond.OK(c, rec)
}

// LoadOwned fetches the analysis named by the :id route parameter and checks
// that it belongs to the caller. It writes the error response itself.
func (h *Handler) LoadOwned(c *gin.Context) (Record, bool) {
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "analysis id is required", nil)
		return Record{}, false
	}
	c.Set("analysisId", analysisID)

	// Stored records are only readable with a verified token; a userId query
	// parameter is not an identity.
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "login_required", "sign in to read analyses", nil)
		return Record{}, false
	}

	rec, err := h.Svc.Get(c.Request.Context(), analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to fetch analysis", nil)
		}
		return Record{}, false
	}
	if rec.UserID != userID {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "analysis not found", nil)
		return Record{}, false
	}
	return rec, true
}

func (h *Handler) listAnalyses(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "login_required", "sign in to view history", nil)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to list analyses", nil)
		return
	}
	respond.OK(c, records)
}
