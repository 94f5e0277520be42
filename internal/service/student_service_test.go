package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type mockStudentRepo struct {
	records    map[string]models.Student
	admissions map[string]string
	photos     map[string]string
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		records:    map[string]models.Student{},
		admissions: map[string]string{},
		photos:     map[string]string{},
	}
}

func (m *mockStudentRepo) ListRows(ctx context.Context, scope models.Scope, req models.PageRequest, classID, sectionID string) (*models.PageResult[models.StudentListRow], error) {
	return &models.PageResult[models.StudentListRow]{Draw: req.Draw}, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Student, error) {
	if rec, ok := m.records[id]; ok {
		return &rec, nil
	}
	return nil, appErrors.ErrNotFound
}

func (m *mockStudentRepo) ExistsByName(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error) {
	id, ok := m.admissions[name]
	return ok && id != excludeID, nil
}

func (m *mockStudentRepo) Insert(ctx context.Context, scope models.Scope, rec *models.Student) error {
	if _, taken := m.admissions[rec.AdmissionNo]; taken {
		return appErrors.ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("st%d", len(m.records)+1)
	}
	m.records[rec.ID] = *rec
	m.admissions[rec.AdmissionNo] = rec.ID
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, scope models.Scope, rec *models.Student) error {
	if _, ok := m.records[rec.ID]; !ok {
		return appErrors.ErrNotFound
	}
	m.records[rec.ID] = *rec
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, scope models.Scope, id string) error {
	if _, ok := m.records[id]; !ok {
		return appErrors.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockStudentRepo) UpdatePhotoPath(ctx context.Context, scope models.Scope, studentID, photoPath string) error {
	if _, ok := m.records[studentID]; !ok {
		return appErrors.ErrNotFound
	}
	m.photos[studentID] = photoPath
	return nil
}

func validStudent() *models.Student {
	return &models.Student{
		AdmissionNo: "ADM-001",
		FirstName:   "Ravi",
		LastName:    "Kumar",
		ClassID:     "c1",
	}
}

func TestStudentServiceSearchRequiresScope(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, nil, nil)

	_, err := svc.Search(context.Background(), models.Scope{}, StudentSearchRequest{})
	assert.ErrorIs(t, err, appErrors.ErrTenantScope)
}

func TestStudentServiceCreateTrimsAdmissionNo(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)

	student := validStudent()
	student.AdmissionNo = "  ADM-001  "
	created, err := svc.Create(context.Background(), serviceScope(), student)
	require.NoError(t, err)
	assert.Equal(t, "ADM-001", created.AdmissionNo)
	assert.Contains(t, repo.admissions, "ADM-001")
}

func TestStudentServiceCreateValidates(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, nil, nil)

	student := validStudent()
	student.FirstName = ""
	_, err := svc.Create(context.Background(), serviceScope(), student)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStudentServiceCreateDuplicateAdmissionNo(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)
	scope := serviceScope()

	_, err := svc.Create(context.Background(), scope, validStudent())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), scope, validStudent())
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
}

func TestStudentServiceUpdateNotFound(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, nil, nil)

	_, err := svc.Update(context.Background(), serviceScope(), "missing", validStudent())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceCheckDuplicateHonorsExclude(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)
	scope := serviceScope()

	created, err := svc.Create(context.Background(), scope, validStudent())
	require.NoError(t, err)

	exists, err := svc.CheckDuplicate(context.Background(), scope, " ADM-001 ", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.CheckDuplicate(context.Background(), scope, "ADM-001", created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStudentServiceAttachPhoto(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)
	scope := serviceScope()

	created, err := svc.Create(context.Background(), scope, validStudent())
	require.NoError(t, err)

	require.NoError(t, svc.AttachPhoto(context.Background(), scope, created.ID, "SCH001/students/p1.jpg"))
	assert.Equal(t, "SCH001/students/p1.jpg", repo.photos[created.ID])

	err = svc.AttachPhoto(context.Background(), scope, "missing", "SCH001/students/p2.jpg")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
