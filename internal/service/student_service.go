package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type studentRepository interface {
	ListRows(ctx context.Context, scope models.Scope, req models.PageRequest, classID, sectionID string) (*models.PageResult[models.StudentListRow], error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*models.Student, error)
	ExistsByName(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error)
	Insert(ctx context.Context, scope models.Scope, rec *models.Student) error
	Update(ctx context.Context, scope models.Scope, rec *models.Student) error
	Delete(ctx context.Context, scope models.Scope, id string) error
	UpdatePhotoPath(ctx context.Context, scope models.Scope, studentID, photoPath string) error
}

// StudentSearchRequest is the grid request plus the class/section narrowing
// the student list screen adds on top of plain text search.
type StudentSearchRequest struct {
	models.PageRequest
	ClassID   string `form:"classId" json:"classId"`
	SectionID string `form:"sectionId" json:"sectionId"`
}

// StudentService coordinates student admissions and the joined list grid.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	cache     *CacheService
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger, cache *CacheService) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger, cache: cache}
}

// Search returns the joined grid window with class and section names.
func (s *StudentService) Search(ctx context.Context, scope models.Scope, req StudentSearchRequest) (*models.PageResult[models.StudentListRow], error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	result, err := s.repo.ListRows(ctx, scope, req.PageRequest, req.ClassID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search students")
	}
	return result, nil
}

// Get returns one student by identifier.
func (s *StudentService) Get(ctx context.Context, scope models.Scope, id string) (*models.Student, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	student, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create admits a new student. Admission numbers are unique per scope.
func (s *StudentService) Create(ctx context.Context, scope models.Scope, student *models.Student) (*models.Student, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	student.AdmissionNo = strings.TrimSpace(student.AdmissionNo)
	if err := s.validator.Struct(student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if err := s.repo.Insert(ctx, scope, student); err != nil {
		if errors.Is(err, appErrors.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "admission number already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx, scope)
	s.logger.Info("student admitted",
		zap.String("id", student.ID),
		zap.String("admission_no", student.AdmissionNo),
		zap.String("tenant", scope.TenantCode))
	return student, nil
}

// Update modifies a student record.
func (s *StudentService) Update(ctx context.Context, scope models.Scope, id string, student *models.Student) (*models.Student, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	student.ID = id
	student.AdmissionNo = strings.TrimSpace(student.AdmissionNo)
	if err := s.validator.Struct(student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if err := s.repo.Update(ctx, scope, student); err != nil {
		switch {
		case errors.Is(err, appErrors.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "admission number already exists")
		case errors.Is(err, appErrors.ErrNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidate(ctx, scope)
	return student, nil
}

// Delete soft-deletes a student. The row stays retrievable by identifier for
// historical receipts and documents.
func (s *StudentService) Delete(ctx context.Context, scope models.Scope, id string) error {
	if !scope.Valid() {
		return appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	if err := s.repo.Delete(ctx, scope, id); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidate(ctx, scope)
	return nil
}

// CheckDuplicate reports whether an admission number is already taken.
func (s *StudentService) CheckDuplicate(ctx context.Context, scope models.Scope, admissionNo, excludeID string) (bool, error) {
	if !scope.Valid() {
		return false, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	exists, err := s.repo.ExistsByName(ctx, scope, strings.TrimSpace(admissionNo), excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	return exists, nil
}

// AttachPhoto records the stored photo path for a student.
func (s *StudentService) AttachPhoto(ctx context.Context, scope models.Scope, studentID, photoPath string) error {
	if !scope.Valid() {
		return appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	if err := s.repo.UpdatePhotoPath(ctx, scope, studentID, photoPath); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach student photo")
	}
	return nil
}

func (s *StudentService) invalidate(ctx context.Context, scope models.Scope) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTenant(ctx, scope); err != nil {
		s.logger.Warn("tenant cache invalidation failed", zap.String("tenant", scope.TenantCode), zap.Error(err))
	}
}
