package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireAdmin protects write endpoints. Accepts either the raw admin key in
// X-Admin-Key or an admin bearer token from POST /auth/token.
func RequireAdmin(keys KeyChecker, tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-Admin-Key"); key != "" {
			if keys.Check(key) {
				c.Next()
				return
			}
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden. Invalid admin key."})
			c.Abort()
			return
		}

		h := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			raw := strings.TrimSpace(h[len("Bearer "):])
			claims, err := tokens.Parse(raw)
			if err == nil && claims.Role == RoleAdmin {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden. Invalid admin key."})
		c.Abort()
	}
}
