package report

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/analyses"
	"boneai-backend/internal/shared/server/middleware"
	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/telemetry"
)

// Handler serves PDF downloads.
type Handler struct {
	Renderer *Renderer
	Analyses *analyses.Handler
}

func NewHandler(renderer *Renderer, analysesHandler *analyses.Handler) *Handler {
	return &Handler{Renderer: renderer, Analyses: analysesHandler}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.renderSupplied)
	if h.Analyses != nil {
		rg.GET("/analyses/:id/report", h.renderStored)
	}
}

func (h *Handler) renderSupplied(c *gin.Context) {
	var body Report
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "request body must be a JSON report", nil)
		return
	}
	if len(body.Sections) == 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "at least one section is required", []map[string]string{
			{"field": "sections", "issue": "required"},
		})
		return
	}
	h.write(c, body)
}

func (h *Handler) renderStored(c *gin.Context) {
	rec, ok := h.Analyses.LoadOwned(c)
	if !ok {
		return
	}
	h.write(c, FromRecord(rec))
}

func (h *Handler) write(c *gin.Context, r Report) {
	doc, err := h.Renderer.RenderDocument(c.Request.Context(), r)
	if err != nil {
		fields := map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err.Error(),
		}
		var rErr *RenderError
		fields["serialization"] = errors.As(err, &rErr)
		telemetry.Error("report.render_failed", fields)
		respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to render report", nil)
		return
	}

	c.Header("X-Page-Count", strconv.Itoa(doc.PageCount))
	if doc.ImageMissing {
		c.Header("X-Report-Image", "missing")
	}
	respond.Attachment(c, "application/pdf", FileName(r.Title, r.Timestamp), doc.Bytes)
}
