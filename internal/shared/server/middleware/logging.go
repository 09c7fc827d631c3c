package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/shared/telemetry"
	"boneai-backend/internal/shared/util"
)

// Logging emits a structured log per request. User ids are hashed so request
// logs never carry the raw identity of a patient.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		isGuest, _ := c.Get(isGuestKey)
		analysisID, _ := c.Get("analysisId")
		taskID, _ := c.Get("taskId")

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_key":    util.Pseudonymize(UserIDFromContext(c)),
			"is_guest":    isGuest,
			"analysis_id": analysisID,
			"task_id":     taskID,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
