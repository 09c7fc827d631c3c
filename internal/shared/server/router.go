package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/analyses"
	"boneai-backend/internal/chat"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/report"
	"boneai-backend/internal/share"
	"boneai-backend/internal/shared/auth"
	"boneai-backend/internal/shared/config"
	"boneai-backend/internal/shared/metrics"
	"boneai-backend/internal/shared/server/middleware"
	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/storage/object"
)

// RouterDeps holds the handlers mounted under /api/v1.
type RouterDeps struct {
	Config          config.Config
	Verifier        *auth.Verifier
	AnalysisHandler *analyses.Handler
	ChatHandler     *chat.Handler
	ReportHandler   *report.Handler
	ShareHandler    *share.Handler
	// LocalImages is set when images live on local disk and must be served by the API.
	LocalImages object.ImageStore
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    middleware.DefaultRateLimitRules(),
			GroupFor: middleware.GroupForRoute,
		}),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.LocalImages != nil {
		r.GET("/images/*key", serveImage(deps.LocalImages))
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/tasks", listTasks)
	api.GET("/me", me)

	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(api)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}
	if deps.ShareHandler != nil {
		deps.ShareHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "route not found", nil)
	})
	return r
}

func listTasks(c *gin.Context) {
	tasks := prompts.Tasks()
	out := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, gin.H{"id": t.ID, "title": t.Title})
	}
	respond.OK(c, out)
}

func serveImage(store object.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "image not found", nil)
			return
		}
		body, err := store.Open(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "image not found", nil)
				return
			}
			respond.Error(c, http.StatusBadRequest, "invalid_key", "image key is invalid", nil)
			return
		}
		defer body.Close()

		contentType := mime.TypeByExtension(path.Ext(key))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, body)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
