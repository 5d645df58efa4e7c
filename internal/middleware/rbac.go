package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

// RequireRoles admits only callers holding one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RequireSelfOrRoles("", roles...)
}

// RequireSelfOrRoles admits callers holding one of roles, or whose user id equals the
// path parameter named param. An empty param disables the self check.
func RequireSelfOrRoles(param string, roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil {
			abortWith(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if param != "" {
			if target := c.Param(param); target != "" && target == claims.UserID {
				c.Next()
				return
			}
		}

		abortWith(c, appErrors.ErrForbidden)
	}
}

func currentClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
