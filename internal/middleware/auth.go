package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/services"
)

// RequireAuth resolves the bearer token from the Authorization header to a
// principal. Inactive accounts are rejected even with a valid token.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apierrors.Unauthorized(c, "Invalid authorization header")
			c.Abort()
			return
		}

		user, err := authService.Authenticate(token)
		if err != nil {
			if errors.Is(err, services.ErrInactiveAccount) {
				apierrors.UnauthorizedWithCode(c, apierrors.ErrCodeInactiveAccount, "Inactive account")
			} else {
				apierrors.Unauthorized(c, "Invalid or expired token")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyPrincipal, policy.FromUser(user))
		c.Next()
	}
}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(c *gin.Context) (policy.Principal, bool) {
	value, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return policy.Principal{}, false
	}

	principal, ok := value.(policy.Principal)
	if !ok {
		return policy.Principal{}, false
	}

	return principal, true
}
