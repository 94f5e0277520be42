package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/service"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextScopeKey is the gin context key storing the resolved tenant scope.
const ContextScopeKey = "requestScope"

// JWT protects routes by requiring a valid access token. On success both the
// claims and the projected tenant scope are stored on the context; a token
// with a broken tenant binding is rejected here, before any handler runs.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		scope := claims.Scope()
		if !scope.Valid() {
			response.Error(c, appErrors.ErrTenantScope)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextScopeKey, scope)
		c.Next()
	}
}

// ScopeFrom extracts the tenant scope stored by the JWT middleware.
func ScopeFrom(c *gin.Context) (models.Scope, bool) {
	value, ok := c.Get(ContextScopeKey)
	if !ok {
		return models.Scope{}, false
	}
	scope, ok := value.(models.Scope)
	return scope, ok
}
