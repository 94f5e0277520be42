package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/response"
)

// DashboardHandler serves the landing-page summary.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Register mounts the dashboard route on the group.
func (h *DashboardHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Summary)
}

// Summary returns counts, collections and recent activity for the tenant.
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, cached, err := h.service.Summary(c.Request.Context(), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	response.OK(c, summary)
}
