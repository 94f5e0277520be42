package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/middleware"
	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/service"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/response"
)

type stubBatchRepo struct {
	records map[string]models.Batch
	names   map[string]string
	listErr error
}

func (m *stubBatchRepo) List(ctx context.Context, scope models.Scope, req models.PageRequest) (*models.PageResult[models.Batch], error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	data := make([]models.Batch, 0, len(m.records))
	for _, rec := range m.records {
		data = append(data, rec)
	}
	return &models.PageResult[models.Batch]{Draw: req.Draw, RecordsTotal: len(data), RecordsFiltered: len(data), Data: data}, nil
}

func (m *stubBatchRepo) FindByID(ctx context.Context, scope models.Scope, id string) (*models.Batch, error) {
	if rec, ok := m.records[id]; ok {
		return &rec, nil
	}
	return nil, appErrors.ErrNotFound
}

func (m *stubBatchRepo) ExistsByName(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error) {
	id, ok := m.names[name]
	return ok && id != excludeID, nil
}

func (m *stubBatchRepo) NextSortOrder(ctx context.Context, scope models.Scope) (int, error) {
	return 1, nil
}

func (m *stubBatchRepo) Insert(ctx context.Context, scope models.Scope, rec *models.Batch) error {
	if _, taken := m.names[rec.BatchName]; taken {
		return appErrors.ErrDuplicate
	}
	rec.ID = "b-new"
	m.records[rec.ID] = *rec
	m.names[rec.BatchName] = rec.ID
	return nil
}

func (m *stubBatchRepo) Update(ctx context.Context, scope models.Scope, rec *models.Batch) error {
	if _, ok := m.records[rec.ID]; !ok {
		return appErrors.ErrNotFound
	}
	m.records[rec.ID] = *rec
	return nil
}

func (m *stubBatchRepo) Delete(ctx context.Context, scope models.Scope, id string) error {
	if _, ok := m.records[id]; !ok {
		return appErrors.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *stubBatchRepo) Lookup(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	items := make([]models.LookupItem, 0, len(m.records))
	for id, rec := range m.records {
		items = append(items, models.LookupItem{ID: id, Name: rec.BatchName})
	}
	return items, nil
}

func handlerScope() models.Scope {
	return models.Scope{TenantID: "t1", TenantCode: "SCH001", SessionID: "s1", SessionYear: 2024, UserID: "u1", Role: models.RoleAdmin}
}

// withScope stands in for the JWT middleware in handler tests.
func withScope(scope models.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextScopeKey, scope)
		c.Next()
	}
}

func newBatchRouter(repo *stubBatchRepo, scope models.Scope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewMasterService(service.MasterServiceParams[models.Batch, *models.Batch]{Repo: repo, Entity: "batch"})
	router := gin.New()
	group := router.Group("/batches", withScope(scope))
	NewMasterHandler(svc).Register(group)
	return router
}

func TestMasterHandlerDataTable(t *testing.T) {
	repo := &stubBatchRepo{
		records: map[string]models.Batch{"b1": {TenantRecord: models.TenantRecord{ID: "b1"}, BatchName: "Morning"}},
		names:   map[string]string{"Morning": "b1"},
	}
	router := newBatchRouter(repo, handlerScope())

	form := url.Values{}
	form.Set("draw", "4")
	form.Set("start", "0")
	form.Set("length", "10")
	req := httptest.NewRequest(http.MethodPost, "/batches/datatable", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope response.DataTableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 4, envelope.Draw)
	assert.Equal(t, 1, envelope.RecordsTotal)
	assert.Equal(t, 1, envelope.RecordsFiltered)
}

func TestMasterHandlerDataTableDegradesOnFailure(t *testing.T) {
	repo := &stubBatchRepo{records: map[string]models.Batch{}, names: map[string]string{}, listErr: appErrors.ErrInternal}
	router := newBatchRouter(repo, handlerScope())

	req := httptest.NewRequest(http.MethodPost, "/batches/datatable", strings.NewReader("draw=2&length=10"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Failures stay HTTP 200 with an empty window so the grid renders.
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope response.DataTableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Draw)
	assert.Equal(t, 0, envelope.RecordsTotal)
}

func TestMasterHandlerCheckDuplicate(t *testing.T) {
	repo := &stubBatchRepo{records: map[string]models.Batch{}, names: map[string]string{"Morning": "b1"}}
	router := newBatchRouter(repo, handlerScope())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batches/check-duplicate?name=Morning", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exists":true`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batches/check-duplicate?name=Morning&excludeId=b1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exists":false`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batches/check-duplicate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestMasterHandlerCreateDuplicateIsSoftFailure(t *testing.T) {
	repo := &stubBatchRepo{records: map[string]models.Batch{}, names: map[string]string{"Morning": "b1"}}
	router := newBatchRouter(repo, handlerScope())

	body := strings.NewReader(`{"batch_name":"Morning"}`)
	req := httptest.NewRequest(http.MethodPost, "/batches", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The legacy AJAX contract reports duplicates inside a 200 envelope.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestMasterHandlerMissingScopeRejected(t *testing.T) {
	repo := &stubBatchRepo{records: map[string]models.Batch{}, names: map[string]string{}}
	router := newBatchRouter(repo, models.Scope{})

	req := httptest.NewRequest(http.MethodGet, "/batches/lookup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
