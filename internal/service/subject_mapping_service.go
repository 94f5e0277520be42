package service

import (
	"context"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type subjectMappingLister interface {
	ListByClass(ctx context.Context, scope models.Scope, classID string) ([]models.SubjectMapping, error)
}

// SubjectMappingService layers the class-wise listing the mapping screen needs
// on top of the shared master flow.
type SubjectMappingService struct {
	*MasterService[models.SubjectMapping, *models.SubjectMapping]
	lister subjectMappingLister
}

// NewSubjectMappingService constructs a SubjectMappingService.
func NewSubjectMappingService(base *MasterService[models.SubjectMapping, *models.SubjectMapping], lister subjectMappingLister) *SubjectMappingService {
	return &SubjectMappingService{MasterService: base, lister: lister}
}

// ListByClass returns every mapping for one class within the scope.
func (s *SubjectMappingService) ListByClass(ctx context.Context, scope models.Scope, classID string) ([]models.SubjectMapping, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	rows, err := s.lister.ListByClass(ctx, scope, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject mappings")
	}
	return rows, nil
}
