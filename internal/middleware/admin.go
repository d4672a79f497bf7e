package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"lucky_spin/internal/utils" // Role names
)

// AdminOnlyMiddleware checks the role claim of the authenticated token
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if userID exists in context
		if _, exists := UserID(c); !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if user role is admin
		if c.GetString(RoleKey) != utils.RoleAdmin {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
