package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/shared/auth"
	"boneai-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	isGuestKey   = "isGuest"
)

// Auth resolves an optional bearer token into the caller's identity. Requests
// without a token continue as guests; a token that fails verification is
// rejected. With a nil verifier every bearer token is rejected.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Set(isGuestKey, true)
			c.Next()
			return
		}

		token, ok := bearerToken(header)
		if !ok || verifier == nil {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Set(isGuestKey, false)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// ResolveUserID prefers the authenticated identity and falls back to the
// identifier supplied in the request body for anonymous callers.
func ResolveUserID(c *gin.Context, fromBody string) string {
	if id := UserIDFromContext(c); id != "" {
		return id
	}
	return strings.TrimSpace(fromBody)
}
