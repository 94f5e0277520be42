package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/repository"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/jobs"
	"github.com/veloxschool/sims-api/pkg/storage"
)

type mockExportStore struct {
	jobs    map[string]*models.ExportJob
	updates []repository.UpdateExportJobParams
}

func newMockExportStore() *mockExportStore {
	return &mockExportStore{jobs: map[string]*models.ExportJob{}}
}

func (m *mockExportStore) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = fmt.Sprintf("job%d", len(m.jobs)+1)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockExportStore) GetByID(ctx context.Context, tenantID, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, appErrors.ErrNotFound
	}
	return job, nil
}

func (m *mockExportStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	m.updates = append(m.updates, params)
	job, ok := m.jobs[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	return nil
}

func (m *mockExportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type mockStudentLister struct {
	rows []models.StudentListRow
}

func (m *mockStudentLister) ListRows(ctx context.Context, scope models.Scope, req models.PageRequest, classID, sectionID string) (*models.PageResult[models.StudentListRow], error) {
	return &models.PageResult[models.StudentListRow]{Data: m.rows, RecordsTotal: len(m.rows), RecordsFiltered: len(m.rows)}, nil
}

func newExportFixture(t *testing.T) (*ExportService, *mockExportStore) {
	t.Helper()
	store := newMockExportStore()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := NewExportService(ExportServiceParams{
		Store: store,
		Reports: &mockReportRepo{
			summary:  []dto.FeeSummaryRow{{ClassName: "Class 1", StudentCount: 20, ExpectedTotal: 1000, Collected: 750, Balance: 250}},
			cashbook: &dto.CashbookReport{},
		},
		Students: &mockStudentLister{},
		Storage:  files,
		Signer:   storage.NewSignedURLSigner("test-secret", time.Hour),
		Config:   ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour},
	})

	queue := jobs.NewQueue("exports-test", func(ctx context.Context, job jobs.Job) error { return nil }, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	svc.SetQueue(queue)
	return svc, store
}

func TestExportServiceEnqueueValidates(t *testing.T) {
	svc, _ := newExportFixture(t)
	scope := serviceScope()

	_, err := svc.Enqueue(context.Background(), models.Scope{}, models.ExportTypeFeeSummary, models.ExportJobParams{Format: models.ExportFormatCSV})
	assert.ErrorIs(t, err, appErrors.ErrTenantScope)

	_, err = svc.Enqueue(context.Background(), scope, models.ExportType("bogus"), models.ExportJobParams{Format: models.ExportFormatCSV})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Enqueue(context.Background(), scope, models.ExportTypeFeeSummary, models.ExportJobParams{Format: models.ExportFormat("xlsx")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportServiceEnqueueRecordsJob(t *testing.T) {
	svc, store := newExportFixture(t)
	scope := serviceScope()

	job, err := svc.Enqueue(context.Background(), scope, models.ExportTypeFeeSummary, models.ExportJobParams{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, scope.TenantID, job.TenantID)
	assert.Contains(t, store.jobs, job.ID)
}

func TestExportServiceProcessFinishesJob(t *testing.T) {
	svc, store := newExportFixture(t)
	scope := serviceScope()

	job := &models.ExportJob{
		TenantID:  scope.TenantID,
		SessionID: scope.SessionID,
		Type:      models.ExportTypeFeeSummary,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV},
		Status:    models.ExportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))

	err := svc.Process(context.Background(), jobs.Job{ID: job.ID, Payload: ExportPayload{JobID: job.ID, Scope: scope}})
	require.NoError(t, err)

	assert.Equal(t, models.ExportStatusFinished, store.jobs[job.ID].Status)
	require.NotNil(t, store.jobs[job.ID].ResultURL)
	assert.True(t, strings.HasPrefix(*store.jobs[job.ID].ResultURL, "/api/v1/exports/download/"))

	// The signed URL resolves back to a readable file scoped under the tenant code.
	token := strings.TrimPrefix(*store.jobs[job.ID].ResultURL, "/api/v1/exports/download/")
	gotJobID, relPath, _, err := svc.ParseToken(token, false)
	require.NoError(t, err)
	assert.Equal(t, job.ID, gotJobID)
	assert.True(t, strings.HasPrefix(relPath, scope.TenantCode+"/"))

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportServiceProcessCashbookRequiresDates(t *testing.T) {
	svc, store := newExportFixture(t)
	scope := serviceScope()

	job := &models.ExportJob{
		TenantID: scope.TenantID,
		Type:     models.ExportTypeCashbook,
		Params:   models.ExportJobParams{Format: models.ExportFormatCSV},
		Status:   models.ExportStatusQueued,
	}
	require.NoError(t, store.Create(context.Background(), job))

	err := svc.Process(context.Background(), jobs.Job{ID: job.ID, Payload: ExportPayload{JobID: job.ID, Scope: scope}})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, store.jobs[job.ID].Status)
	require.NotNil(t, store.jobs[job.ID].ErrorMessage)
}

func TestExportServiceStatusScopedToTenant(t *testing.T) {
	svc, store := newExportFixture(t)
	scope := serviceScope()

	job := &models.ExportJob{TenantID: "other-tenant", Type: models.ExportTypeFeeSummary, Status: models.ExportStatusQueued}
	require.NoError(t, store.Create(context.Background(), job))

	_, err := svc.Status(context.Background(), scope, job.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
