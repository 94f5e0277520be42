package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type mockBatchRepo struct {
	records   map[string]models.Batch
	names     map[string]string
	nextSort  int
	insertErr error
	updateErr error
	inserted  []string
	deleted   []string
}

func (m *mockBatchRepo) List(ctx context.Context, scope models.Scope, req models.PageRequest) (*models.PageResult[models.Batch], error) {
	data := make([]models.Batch, 0, len(m.records))
	for _, rec := range m.records {
		data = append(data, rec)
	}
	return &models.PageResult[models.Batch]{Draw: req.Draw, RecordsTotal: len(data), RecordsFiltered: len(data), Data: data}, nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Batch, error) {
	if rec, ok := m.records[id]; ok {
		return &rec, nil
	}
	return nil, appErrors.ErrNotFound
}

func (m *mockBatchRepo) ExistsByName(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error) {
	id, ok := m.names[name]
	return ok && id != excludeID, nil
}

func (m *mockBatchRepo) NextSortOrder(ctx context.Context, scope models.Scope) (int, error) {
	if m.nextSort == 0 {
		return 1, nil
	}
	return m.nextSort, nil
}

func (m *mockBatchRepo) Insert(ctx context.Context, scope models.Scope, rec *models.Batch) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, taken := m.names[rec.BatchName]; taken {
		return appErrors.ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("b%d", len(m.inserted)+1)
	}
	if m.records == nil {
		m.records = map[string]models.Batch{}
	}
	if m.names == nil {
		m.names = map[string]string{}
	}
	m.records[rec.ID] = *rec
	m.names[rec.BatchName] = rec.ID
	m.inserted = append(m.inserted, rec.ID)
	return nil
}

func (m *mockBatchRepo) Update(ctx context.Context, scope models.Scope, rec *models.Batch) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.records[rec.ID]; !ok {
		return appErrors.ErrNotFound
	}
	m.records[rec.ID] = *rec
	return nil
}

func (m *mockBatchRepo) Delete(ctx context.Context, scope models.Scope, id string) error {
	if _, ok := m.records[id]; !ok {
		return appErrors.ErrNotFound
	}
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockBatchRepo) Lookup(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	items := make([]models.LookupItem, 0, len(m.records))
	for id, rec := range m.records {
		items = append(items, models.LookupItem{ID: id, Name: rec.BatchName})
	}
	return items, nil
}

func newBatchService(repo *mockBatchRepo) *MasterService[models.Batch, *models.Batch] {
	return NewMasterService(MasterServiceParams[models.Batch, *models.Batch]{
		Repo:      repo,
		Entity:    "batch",
		Validator: validator.New(),
		Logger:    zap.NewNop(),
	})
}

func serviceScope() models.Scope {
	return models.Scope{TenantID: "t1", TenantCode: "SCH001", SessionID: "s1", SessionYear: 2024, UserID: "u1", Role: models.RoleAdmin}
}

func TestMasterServiceSearchRequiresScope(t *testing.T) {
	svc := newBatchService(&mockBatchRepo{})

	_, err := svc.Search(context.Background(), models.Scope{}, models.PageRequest{})
	assert.ErrorIs(t, err, appErrors.ErrTenantScope)
}

func TestMasterServiceRejectsHalfProvisionedTenant(t *testing.T) {
	svc := newBatchService(&mockBatchRepo{})
	scope := serviceScope()
	scope.TenantCode = "0"

	_, err := svc.Search(context.Background(), scope, models.PageRequest{})
	assert.ErrorIs(t, err, appErrors.ErrTenantScope)
}

func TestMasterServiceCreateValidates(t *testing.T) {
	repo := &mockBatchRepo{}
	svc := newBatchService(repo)

	_, err := svc.Create(context.Background(), serviceScope(), &models.Batch{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.inserted)
}

func TestMasterServiceCreateAndRecreateAfterDelete(t *testing.T) {
	repo := &mockBatchRepo{}
	svc := newBatchService(repo)
	scope := serviceScope()

	created, err := svc.Create(context.Background(), scope, &models.Batch{BatchName: "Morning"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(context.Background(), scope, &models.Batch{BatchName: "Morning"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)

	require.NoError(t, svc.Delete(context.Background(), scope, created.ID))
	delete(repo.names, "Morning")

	recreated, err := svc.Create(context.Background(), scope, &models.Batch{BatchName: "Morning"})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, recreated.ID)
}

func TestMasterServiceCreateRunsBeforeSaveHook(t *testing.T) {
	repo := &mockBatchRepo{}
	hookErr := appErrors.Clone(appErrors.ErrDuplicate, "already mapped")
	svc := NewMasterService(MasterServiceParams[models.Batch, *models.Batch]{
		Repo:      repo,
		Entity:    "batch",
		Validator: validator.New(),
		Logger:    zap.NewNop(),
		BeforeSave: func(ctx context.Context, scope models.Scope, rec *models.Batch, isCreate bool) error {
			return hookErr
		},
	})

	_, err := svc.Create(context.Background(), serviceScope(), &models.Batch{BatchName: "Morning"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
	assert.Empty(t, repo.inserted)
}

func TestMasterServiceUpdateOverridesPayloadID(t *testing.T) {
	repo := &mockBatchRepo{
		records: map[string]models.Batch{"b1": {TenantRecord: models.TenantRecord{ID: "b1"}, BatchName: "Old"}},
		names:   map[string]string{"Old": "b1"},
	}
	svc := newBatchService(repo)

	payload := &models.Batch{BatchName: "New"}
	payload.ID = "spoofed"
	updated, err := svc.Update(context.Background(), serviceScope(), "b1", payload)
	require.NoError(t, err)
	assert.Equal(t, "b1", updated.ID)
	assert.Equal(t, "New", repo.records["b1"].BatchName)
}

func TestMasterServiceUpdateNotFound(t *testing.T) {
	svc := newBatchService(&mockBatchRepo{})

	_, err := svc.Update(context.Background(), serviceScope(), "missing", &models.Batch{BatchName: "X"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMasterServiceCheckDuplicateHonorsExclude(t *testing.T) {
	repo := &mockBatchRepo{names: map[string]string{"Morning": "b1"}}
	svc := newBatchService(repo)
	scope := serviceScope()

	exists, err := svc.CheckDuplicate(context.Background(), scope, "Morning", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.CheckDuplicate(context.Background(), scope, "Morning", "b1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMasterServiceLookupIncludeAllSentinel(t *testing.T) {
	repo := &mockBatchRepo{records: map[string]models.Batch{"b1": {BatchName: "Morning"}}}
	svc := newBatchService(repo)

	items, err := svc.Lookup(context.Background(), serviceScope(), true)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "", items[0].ID)
	assert.Equal(t, "ALL", items[0].Name)

	items, err = svc.Lookup(context.Background(), serviceScope(), false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Morning", items[0].Name)
}

func TestMasterServiceNextSortOrder(t *testing.T) {
	svc := newBatchService(&mockBatchRepo{nextSort: 7})

	next, err := svc.NextSortOrder(context.Background(), serviceScope())
	require.NoError(t, err)
	assert.Equal(t, 7, next)
}
