package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/response"
)

// SubjectMappingHandler adds the class-wise listing to the shared master routes.
type SubjectMappingHandler struct {
	*MasterHandler[models.SubjectMapping, *models.SubjectMapping]
	service *service.SubjectMappingService
}

// NewSubjectMappingHandler constructs a subject mapping handler.
func NewSubjectMappingHandler(svc *service.SubjectMappingService) *SubjectMappingHandler {
	return &SubjectMappingHandler{MasterHandler: NewMasterHandler(svc.MasterService), service: svc}
}

// Register mounts the shared master routes plus the class listing.
func (h *SubjectMappingHandler) Register(rg *gin.RouterGroup) {
	h.MasterHandler.Register(rg)
	rg.GET("/by-class/:classId", h.ListByClass)
}

// ListByClass returns the subjects mapped to one class.
func (h *SubjectMappingHandler) ListByClass(c *gin.Context) {
	rows, err := h.service.ListByClass(c.Request.Context(), scopeFromContext(c), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}
