package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/response"
)

// LookupHandler exposes the dropdown lists shared by the form screens.
type LookupHandler struct {
	service *service.LookupService
}

// NewLookupHandler constructs a lookup handler.
func NewLookupHandler(svc *service.LookupService) *LookupHandler {
	return &LookupHandler{service: svc}
}

// Register mounts the lookup routes on the group.
func (h *LookupHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/classes", h.Classes)
	rg.GET("/sections", h.Sections)
	rg.GET("/subjects", h.Subjects)
	rg.GET("/exams", h.Exams)
	rg.GET("/fee-categories", h.FeeCategories)
}

// Classes returns the class dropdown.
func (h *LookupHandler) Classes(c *gin.Context) {
	items, err := h.service.Classes(c.Request.Context(), scopeFromContext(c), includeAll(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Sections returns the section dropdown, optionally limited to one class.
func (h *LookupHandler) Sections(c *gin.Context) {
	items, err := h.service.Sections(c.Request.Context(), scopeFromContext(c), c.Query("classId"), includeAll(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Subjects returns the subject dropdown.
func (h *LookupHandler) Subjects(c *gin.Context) {
	items, err := h.service.Subjects(c.Request.Context(), scopeFromContext(c), includeAll(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Exams returns the exam dropdown.
func (h *LookupHandler) Exams(c *gin.Context) {
	items, err := h.service.Exams(c.Request.Context(), scopeFromContext(c), includeAll(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// FeeCategories returns the fee category dropdown.
func (h *LookupHandler) FeeCategories(c *gin.Context) {
	items, err := h.service.FeeCategories(c.Request.Context(), scopeFromContext(c), includeAll(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

func includeAll(c *gin.Context) bool {
	return c.Query("includeAll") == "true"
}
