package middleware

import (
	"net/http"
	"strings"

	"cortex-server/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	userIDContextKey = "userID"
	roleContextKey   = "role"
)

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, userIDContextKey)
}

func RoleFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, roleContextKey)
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	value, ok := v.(string)
	return value, ok && value != ""
}

// RequireAuth accepts "Authorization: Bearer <jwt>" and stores the token's
// subject and role on the context.
func RequireAuth(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authentication token."})
			return
		}

		claims, err := auth.VerifyToken(strings.TrimSpace(parts[1]), cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authentication token."})
			return
		}

		c.Set(userIDContextKey, claims.UserID())
		c.Set(roleContextKey, claims.Role)
		c.Next()
	}
}
