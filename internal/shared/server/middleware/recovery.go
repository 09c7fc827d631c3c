package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a logged 500 envelope. If the handler
// already started streaming (a PDF download, say) the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"written":    c.Writer.Written(),
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
		}()
		c.Next()
	}
}
