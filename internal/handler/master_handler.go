package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/datatable"
	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/service"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/response"
)

// MasterHandler exposes the shared grid/CRUD endpoints for one master entity.
// One instantiation per entity replaces the page-sized copies the legacy
// screens each carried.
type MasterHandler[T any, PT datatable.Recordable[T]] struct {
	service *service.MasterService[T, PT]
}

// NewMasterHandler constructs a master handler.
func NewMasterHandler[T any, PT datatable.Recordable[T]](svc *service.MasterService[T, PT]) *MasterHandler[T, PT] {
	return &MasterHandler[T, PT]{service: svc}
}

// Register mounts the entity routes on the group.
func (h *MasterHandler[T, PT]) Register(rg *gin.RouterGroup) {
	rg.POST("/datatable", h.DataTable)
	rg.GET("/lookup", h.Lookup)
	rg.GET("/next-sort-order", h.NextSortOrder)
	rg.GET("/check-duplicate", h.CheckDuplicate)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// DataTable serves one grid window in the DataTables envelope. Failures
// degrade to an empty page so the grid still renders.
func (h *MasterHandler[T, PT]) DataTable(c *gin.Context) {
	var req models.PageRequest
	if err := c.ShouldBind(&req); err != nil {
		response.DataTableError(c, req.Draw)
		return
	}
	result, err := h.service.Search(c.Request.Context(), scopeFromContext(c), req)
	if err != nil {
		response.DataTableError(c, req.Draw)
		return
	}
	response.DataTable(c, result.Draw, result.RecordsTotal, result.RecordsFiltered, result.Data)
}

// Get returns one record.
func (h *MasterHandler[T, PT]) Get(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}

// Create persists a new record.
func (h *MasterHandler[T, PT]) Create(c *gin.Context) {
	rec := PT(new(T))
	if err := c.ShouldBindJSON(rec); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), scopeFromContext(c), rec)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update modifies an existing record.
func (h *MasterHandler[T, PT]) Update(c *gin.Context) {
	rec := PT(new(T))
	if err := c.ShouldBindJSON(rec); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), scopeFromContext(c), c.Param("id"), rec)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Delete removes a record.
func (h *MasterHandler[T, PT]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), scopeFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "record deleted", nil)
}

// NextSortOrder previews the sort position a new record would take.
func (h *MasterHandler[T, PT]) NextSortOrder(c *gin.Context) {
	next, err := h.service.NextSortOrder(c.Request.Context(), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"next_sort_order": next})
}

// CheckDuplicate reports whether the name is already taken within the scope.
func (h *MasterHandler[T, PT]) CheckDuplicate(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name is required"))
		return
	}
	exists, err := h.service.CheckDuplicate(c.Request.Context(), scopeFromContext(c), name, c.Query("excludeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"exists": exists})
}

// Lookup returns the dropdown list for the entity.
func (h *MasterHandler[T, PT]) Lookup(c *gin.Context) {
	includeAll := c.Query("includeAll") == "true"
	items, err := h.service.Lookup(c.Request.Context(), scopeFromContext(c), includeAll)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
