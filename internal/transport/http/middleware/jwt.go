package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"supportchat/internal/pkg/jwtutil"
	"supportchat/internal/transport/http/response"
)

const ContextUserIDKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (uint, error)
}

func AuthJWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "access token required")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		userID, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, jwtutil.ErrTokenExpired) {
				response.Error(c, http.StatusUnauthorized, "token expired")
				return
			}
			response.Error(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := v.(uint)
	return userID, ok && userID != 0
}
