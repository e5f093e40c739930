package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ratehub/ratehub/internal/httperr"
	"github.com/ratehub/ratehub/internal/metrics"
	"github.com/ratehub/ratehub/internal/token"
)

const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// AuthMiddleware resolves the bearer token into an identity and role before
// any protected handler runs. Expired and malformed tokens are counted
// separately but both answer 401: the client learns nothing more than
// "unauthorized".
func AuthMiddleware(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			metrics.AuthRejections.WithLabelValues("missing_header").Inc()
			abortUnauthorized(c, "missing_authorization_header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			metrics.AuthRejections.WithLabelValues("bad_header").Inc()
			abortUnauthorized(c, "invalid_authorization_header")
			return
		}

		identity, err := issuer.Verify(parts[1])
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				metrics.AuthRejections.WithLabelValues("expired").Inc()
			} else {
				metrics.AuthRejections.WithLabelValues("malformed").Inc()
			}
			abortUnauthorized(c, "invalid_token")
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextUserRole, identity.Role)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code string) {
	httperr.Unauthorized(c, code, "Authentication required.")
	c.Abort()
}
