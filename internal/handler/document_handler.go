package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/response"
)

// DocumentHandler streams per-student PDF documents.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Register mounts the document routes on the group.
func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/students/:id/id-card", h.IDCard)
	rg.GET("/students/:id/certificate", h.Certificate)
}

// IDCard renders the student identity card.
func (h *DocumentHandler) IDCard(c *gin.Context) {
	doc, err := h.service.IDCard(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, doc)
}

// Certificate renders a study or transfer certificate. The type defaults to
// study when absent.
func (h *DocumentHandler) Certificate(c *gin.Context) {
	certType := service.CertificateType(c.DefaultQuery("type", string(service.CertificateStudy)))
	doc, err := h.service.Certificate(c.Request.Context(), scopeFromContext(c), c.Param("id"), certType)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, doc)
}

func (h *DocumentHandler) stream(c *gin.Context, doc *service.Document) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(200, doc.ContentType, doc.Data)
}
