package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hemantmeena2005/chat/utils"
)

// UsernameKey is the gin context key holding the authenticated username.
const UsernameKey = "username"

// AuthMiddleware validates the bearer token and stores its subject under
// UsernameKey.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
			return
		}

		claims, err := utils.ValidateToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(UsernameKey, claims.Subject)
		c.Next()
	}
}

// Username returns the subject set by AuthMiddleware, or "" on public routes.
func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
