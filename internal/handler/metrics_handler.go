package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/response"
)

// MetricsHandler exposes the Prometheus scrape endpoint and a JSON snapshot
// for the admin screens.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Register mounts the metrics routes on the group.
func (h *MetricsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	rg.GET("/system", h.System)
}

// System returns a point-in-time runtime snapshot.
func (h *MetricsHandler) System(c *gin.Context) {
	response.OK(c, h.metrics.Snapshot())
}
