package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextToken  = "token"
)

// AuthMiddleware requires a valid, non-revoked "Authorization: Bearer" token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid token format"))
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// WebSocketAuthMiddleware reads the token from ?token= since browsers cannot
// set headers on a websocket handshake.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("token missing"))
			c.Abort()
			return
		}
		if !authenticate(c, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokenString string) bool {
	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		c.Abort()
		return false
	}
	if claims.UserID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid user ID in token"))
		c.Abort()
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextToken, tokenString)
	return true
}
