package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/service"
	"github.com/veloxschool/sims-api/pkg/config"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/response"
	"github.com/veloxschool/sims-api/pkg/storage"
)

// StudentHandler exposes student admission endpoints plus the photo upload.
type StudentHandler struct {
	service *service.StudentService
	photos  *storage.LocalStorage
	uploads config.UploadsConfig
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc *service.StudentService, photos *storage.LocalStorage, uploads config.UploadsConfig) *StudentHandler {
	return &StudentHandler{service: svc, photos: photos, uploads: uploads}
}

// Register mounts the student routes on the group.
func (h *StudentHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/datatable", h.DataTable)
	rg.GET("/check-duplicate", h.CheckDuplicate)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/photo", h.UploadPhoto)
}

// DataTable serves the joined student grid.
func (h *StudentHandler) DataTable(c *gin.Context) {
	var req service.StudentSearchRequest
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

// Get returns one student.
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), scopeFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Create admits a new student.
func (h *StudentHandler) Create(c *gin.Context) {
	var student models.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), scopeFromContext(c), &student)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update modifies a student record.
func (h *StudentHandler) Update(c *gin.Context) {
	var student models.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), scopeFromContext(c), c.Param("id"), &student)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Delete soft-deletes a student.
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), scopeFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "student deleted", nil)
}

// CheckDuplicate reports whether an admission number is taken.
func (h *StudentHandler) CheckDuplicate(c *gin.Context) {
	admissionNo := strings.TrimSpace(c.Query("admissionNo"))
	if admissionNo == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "admissionNo is required"))
		return
	}
	exists, err := h.service.CheckDuplicate(c.Request.Context(), scopeFromContext(c), admissionNo, c.Query("excludeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"exists": exists})
}

// UploadPhoto stores a student photo and records its path. Files are kept
// under the tenant code so no path ever crosses tenants.
func (h *StudentHandler) UploadPhoto(c *gin.Context) {
	scope := scopeFromContext(c)

	file, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "photo file is required"))
		return
	}
	if file.Size > h.uploads.MaxFileSizeBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "photo exceeds the size limit"))
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !h.mimeAllowed(contentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported photo type"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(file.Filename))
	relPath := fmt.Sprintf("%s/students/%s%s", scope.TenantCode, uuid.NewString(), ext)
	if _, err := h.photos.SaveStream(relPath, src); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo"))
		return
	}

	if err := h.service.AttachPhoto(c.Request.Context(), scope, c.Param("id"), relPath); err != nil {
		_ = h.photos.Delete(relPath)
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "photo uploaded", gin.H{"photo_path": relPath})
}

func (h *StudentHandler) mimeAllowed(contentType string) bool {
	if len(h.uploads.AllowedMIMEs) == 0 {
		return strings.HasPrefix(contentType, "image/")
	}
	for _, allowed := range h.uploads.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}
