package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/service"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/response"
)

// ExportHandler enqueues report exports and serves their signed downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Register mounts the export routes on the group.
func (h *ExportHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.Enqueue)
	rg.GET("/:id", h.Status)
}

// RegisterDownload mounts the token-gated download outside the JWT group. The
// token itself carries the authorization.
func (h *ExportHandler) RegisterDownload(rg *gin.RouterGroup) {
	rg.GET("/download/:token", h.Download)
}

type enqueueExportRequest struct {
	Type   string                 `json:"type" binding:"required"`
	Params models.ExportJobParams `json:"params"`
}

// Enqueue schedules a background export and returns the queued job.
func (h *ExportHandler) Enqueue(c *gin.Context) {
	var req enqueueExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "export type is required"))
		return
	}
	job, err := h.service.Enqueue(c.Request.Context(), scopeFromContext(c), models.ExportType(req.Type), req.Params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Status returns the current state of a queued export job.
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.service.Status(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Download streams a finished export addressed by its signed token.
func (h *ExportHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.service.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired"))
		return
	}

	file, err := h.service.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file is no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck

	filename := filepath.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentTypeForExport(filename))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func contentTypeForExport(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
