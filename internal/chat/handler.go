package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/llm"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/shared/server/middleware"
	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/telemetry"
)

// Handler serves the chat endpoint.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.chat)
}

type chatRequest struct {
	Message    string `json:"message"`
	Context    string `json:"context"`
	UserType   string `json:"userType"`
	AnalysisID string `json:"analysisId"`
	UserID     string `json:"userId"`
}

func (h *Handler) chat(c *gin.Context) {
	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "request body must be JSON", nil)
		return
	}
	if body.AnalysisID != "" {
		c.Set("analysisId", body.AnalysisID)
	}

	reply, err := h.Svc.Reply(c.Request.Context(), Request{
		Message:    body.Message,
		Context:    body.Context,
		Role:       prompts.ParseRole(body.UserType),
		AnalysisID: body.AnalysisID,
		UserID:     middleware.ResolveUserID(c, body.UserID),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), []map[string]string{
				{"field": "message", "issue": "required"},
			})
		case errors.Is(err, llm.ErrNotImplemented):
			respond.Error(c, http.StatusServiceUnavailable, "llm_unavailable", "chat provider is not configured", nil)
		default:
			telemetry.Error("chat.failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"error":      err.Error(),
			})
			respond.Error(c, http.StatusBadGateway, "chat_failed", "failed to generate a reply", nil)
		}
		return
	}
	respond.OK(c, reply)
}
