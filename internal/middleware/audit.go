package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/repository"
)

// Audit records an audit log entry after each successful state-changing
// request. Reads are never audited; failed requests are dropped too since the
// write they describe did not happen.
func Audit(repo *repository.UserRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= 400 {
			return
		}

		scope, ok := ScopeFrom(c)
		if !ok {
			return
		}

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			TenantID:   scope.TenantID,
			UserID:     scope.UserID,
			Action:     action,
			Resource:   resource,
			ResourceID: c.Param("id"),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}
