package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS sets CORS headers and answers every OPTIONS request with an empty 204.
// A "*" entry (the default) allows any origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	handler := cors.New(corsConfig(allowedOrigins))
	return func(c *gin.Context) {
		handler(c)
		if !c.IsAborted() && c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Content-Type", "Authorization", "X-Request-Id", "apikey", "x-client-info"},
		ExposeHeaders:             []string{"X-Request-Id", "Content-Disposition", "Retry-After"},
		MaxAge:                    10 * time.Minute,
		OptionsResponseStatusCode: http.StatusNoContent,
	}
	var origins []string
	for _, o := range allowedOrigins {
		trimmed := strings.TrimSpace(o)
		if trimmed == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
