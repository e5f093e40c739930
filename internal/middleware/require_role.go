package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ratehub/ratehub/internal/httperr"
	"github.com/ratehub/ratehub/internal/models"
)

// RequireRole guards an operation with its exact allowed-role set. There is
// no role hierarchy: admin is listed explicitly wherever admin may pass. A
// role that fails the closed-set check is rejected, never admitted.
func RequireRole(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(ContextUserRole)
		if !exists {
			abortUnauthorized(c, "role_not_in_context")
			return
		}

		role, ok := roleVal.(models.Role)
		if !ok || !role.Valid() {
			abortUnauthorized(c, "invalid_role")
			return
		}

		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}

		httperr.Forbidden(c, "insufficient_role", "You do not have access to this resource.")
		c.Abort()
	}
}
