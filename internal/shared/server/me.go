package server

import (
	"github.com/gin-gonic/gin"

	"boneai-backend/internal/shared/server/middleware"
	"boneai-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID  string `json:"userId"`
	IsGuest bool   `json:"isGuest"`
	Email   string `json:"email,omitempty"`
}

// me echoes the principal the auth middleware resolved. Guests get an empty
// userId; analyses they run are not persisted.
func me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	respond.OK(c, meResponse{
		UserID:  userID,
		IsGuest: userID == "",
		Email:   middleware.UserEmailFromContext(c),
	})
}
