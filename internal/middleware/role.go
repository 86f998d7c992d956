package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tickethub/internal/domain"
	"tickethub/internal/pkg/response"
)

// RequireRole ensures the authenticated user holds one of the given
// roles. Admins pass every check.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "role not found in token")
			c.Abort()
			return
		}

		got := domain.Role(role.(string))
		if got == domain.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if got == r {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		c.Abort()
	}
}

func OrganizerOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleOrganizer)
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole()
}
