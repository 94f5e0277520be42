package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/middleware"
	"github.com/veloxschool/sims-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// scopeFromContext returns the tenant scope the JWT middleware resolved. The
// zero scope fails Valid() so downstream services reject it uniformly.
func scopeFromContext(c *gin.Context) models.Scope {
	scope, ok := middleware.ScopeFrom(c)
	if !ok {
		return models.Scope{}
	}
	return scope
}
