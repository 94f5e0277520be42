package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/service"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/response"
)

// ReportHandler serves the read-only fee reports.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Register mounts the report routes on the group.
func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/fee-summary", h.FeeSummary)
	rg.POST("/fee-defaulters/datatable", h.FeeDefaulters)
	rg.GET("/cashbook", h.Cashbook)
}

// FeeSummary returns the class-wise demand/collection rollup.
func (h *ReportHandler) FeeSummary(c *gin.Context) {
	rows, err := h.service.FeeSummary(c.Request.Context(), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// FeeDefaulters serves the defaulter grid with class/section/min-due filters.
func (h *ReportHandler) FeeDefaulters(c *gin.Context) {
	var req service.DefaulterSearchRequest
	if err := c.ShouldBind(&req); err != nil {
		response.DataTableError(c, req.Draw)
		return
	}
	result, err := h.service.FeeDefaulters(c.Request.Context(), scopeFromContext(c), req)
	if err != nil {
		response.DataTableError(c, req.Draw)
		return
	}
	response.DataTable(c, result.Draw, result.RecordsTotal, result.RecordsFiltered, result.Data)
}

// Cashbook returns the receipts ledger for an inclusive date range.
func (h *ReportHandler) Cashbook(c *gin.Context) {
	var req service.CashbookRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to dates are required"))
		return
	}
	report, err := h.service.Cashbook(c.Request.Context(), scopeFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
