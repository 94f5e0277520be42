package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type mockMappingLister struct {
	byClass map[string][]models.SubjectMapping
}

func (m *mockMappingLister) ListByClass(ctx context.Context, scope models.Scope, classID string) ([]models.SubjectMapping, error) {
	return m.byClass[classID], nil
}

func newMappingService(lister *mockMappingLister) *SubjectMappingService {
	base := NewMasterService(MasterServiceParams[models.SubjectMapping, *models.SubjectMapping]{Entity: "subject-mapping"})
	return NewSubjectMappingService(base, lister)
}

func TestSubjectMappingListByClass(t *testing.T) {
	lister := &mockMappingLister{byClass: map[string][]models.SubjectMapping{
		"c1": {{ClassID: "c1", SectionID: "sec1", SubjectID: "sub1"}},
	}}
	svc := newMappingService(lister)

	rows, err := svc.ListByClass(context.Background(), serviceScope(), "c1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sub1", rows[0].SubjectID)

	rows, err = svc.ListByClass(context.Background(), serviceScope(), "c2")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubjectMappingListByClassValidates(t *testing.T) {
	svc := newMappingService(&mockMappingLister{})

	_, err := svc.ListByClass(context.Background(), models.Scope{}, "c1")
	assert.ErrorIs(t, err, appErrors.ErrTenantScope)

	_, err = svc.ListByClass(context.Background(), serviceScope(), "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
