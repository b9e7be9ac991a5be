package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizcraft-backend/internal/response"
)

// SessionValidator is implemented by *service.AuthService.
type SessionValidator interface {
	ValidateSession(ctx context.Context, userID uuid.UUID, jti string) error
}

// CheckActiveSession rejects tokens whose JTI is no longer the user's active session,
// i.e. after logout or a newer login.
func CheckActiveSession(auth SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := auth.ValidateSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
