package datatable

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

var batchDescriptor = Descriptor{
	Table:         "academic_batches",
	SelectColumns: []string{"id", "tenant_id", "session_id", "session_year", "sort_order", "is_active", "is_deleted", "created_by", "created_at", "modified_by", "modified_at", "batch_name"},
	NameColumn:    "batch_name",
	SearchColumns: []string{"batch_name"},
	SortColumns:   map[string]string{"name": "batch_name", "sortOrder": "sort_order"},
	SessionScoped: true,
	InsertColumns: []string{"batch_name"},
	UpdateColumns: []string{"batch_name"},
}

var testScope = models.Scope{
	TenantID:    "t1",
	TenantCode:  "SCH001",
	SessionID:   "s1",
	SessionYear: 2024,
	UserID:      "u1",
	Role:        models.RoleAdmin,
}

func newEngineMock(t *testing.T) (*Engine[models.Batch, *models.Batch], sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	engine := NewEngine[models.Batch, *models.Batch](sqlx.NewDb(db, "sqlmock"), batchDescriptor)
	return engine, mock, func() { db.Close() }
}

func testTime() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }

func batchRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "session_id", "session_year", "sort_order", "is_active", "is_deleted", "created_by", "created_at", "modified_by", "modified_at", "batch_name"})
}

func TestEngineListScopesTenantAndSession(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_batches WHERE tenant_id = $1 AND NOT is_deleted AND session_id = $2 AND session_year = $3")).
		WithArgs("t1", "s1", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sort_order ASC LIMIT 10 OFFSET 0")).
		WithArgs("t1", "s1", 2024).
		WillReturnRows(batchRows().
			AddRow("b1", "t1", "s1", 2024, 1, true, false, "u1", testTime(), nil, nil, "Morning").
			AddRow("b2", "t1", "s1", 2024, 2, true, false, "u1", testTime(), nil, nil, "Evening"))

	result, err := engine.List(context.Background(), testScope, models.PageRequest{Draw: 3, Start: 0, Length: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Draw)
	assert.Equal(t, 2, result.RecordsTotal)
	assert.Equal(t, 2, result.RecordsFiltered)
	assert.Len(t, result.Data, 2)
	assert.LessOrEqual(t, result.RecordsFiltered, result.RecordsTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineListSearchRunsSecondCount(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_batches")).
		WithArgs("t1", "s1", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(batch_name) LIKE $4")).
		WithArgs("t1", "s1", 2024, "%morn%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY batch_name DESC LIMIT 10 OFFSET 0")).
		WithArgs("t1", "s1", 2024, "%morn%").
		WillReturnRows(batchRows().
			AddRow("b1", "t1", "s1", 2024, 1, true, false, "u1", testTime(), nil, nil, "Morning"))

	result, err := engine.List(context.Background(), testScope, models.PageRequest{
		Start: 0, Length: 10, SearchValue: "Morn", SortColumn: "name", SortDirection: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.RecordsTotal)
	assert.Equal(t, 1, result.RecordsFiltered)
	assert.Len(t, result.Data, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineListZeroLengthReturnsEmptyWindow(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_batches")).
		WithArgs("t1", "s1", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	result, err := engine.List(context.Background(), testScope, models.PageRequest{Draw: 1, Length: 0})
	require.NoError(t, err)
	assert.Equal(t, 7, result.RecordsTotal)
	assert.Empty(t, result.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineListUnknownSortFallsBack(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_batches")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// A hostile sort token must never reach the SQL text.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY sort_order ASC LIMIT 5 OFFSET 0")).
		WillReturnRows(batchRows())

	_, err := engine.List(context.Background(), testScope, models.PageRequest{
		Length: 5, SortColumn: "batch_name; DROP TABLE students--", SortDirection: "ASC",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineFindByIDNotFound(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND tenant_id = $2")).
		WithArgs("b-unknown", "t1").
		WillReturnRows(batchRows())

	_, err := engine.FindByID(context.Background(), testScope, "b-unknown")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineNextSortOrderEmptyScope(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sort_order), 0) + 1 FROM academic_batches")).
		WithArgs("t1", "s1", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))

	next, err := engine.NextSortOrder(context.Background(), testScope)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineInsertAssignsIDAndSortOrder(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM academic_batches")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery("INSERT INTO academic_batches").
		WillReturnRows(sqlmock.NewRows([]string{"sort_order"}).AddRow(4))

	batch := &models.Batch{BatchName: "Morning"}
	require.NoError(t, engine.Insert(context.Background(), testScope, batch))
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, "t1", batch.TenantID)
	assert.Equal(t, "s1", batch.SessionID)
	assert.Equal(t, "u1", batch.CreatedBy)
	assert.Equal(t, 4, batch.SortOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineInsertDuplicateName(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM academic_batches")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := engine.Insert(context.Background(), testScope, &models.Batch{BatchName: "Morning"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineUpdateCrossTenantAffectsNothing(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM academic_batches")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec("UPDATE academic_batches SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	batch := &models.Batch{BatchName: "Morning"}
	batch.ID = "owned-by-other-tenant"
	err := engine.Update(context.Background(), testScope, batch)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineDeleteIsSoft(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_batches SET is_deleted = TRUE")).
		WithArgs("u1", sqlmock.AnyArg(), "b1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, engine.Delete(context.Background(), testScope, "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineHardDeleteDescriptor(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	desc := batchDescriptor
	desc.Table = "subject_mappings"
	desc.HardDelete = true
	engine := NewEngine[models.SubjectMapping, *models.SubjectMapping](sqlx.NewDb(db, "sqlmock"), desc)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_mappings WHERE id = $1 AND tenant_id = $2")).
		WithArgs("m1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, engine.Delete(context.Background(), testScope, "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineLookupOrdersBySortOrder(t *testing.T) {
	engine, mock, cleanup := newEngineMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, batch_name AS name FROM academic_batches")).
		WithArgs("t1", "s1", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("b1", "Morning").AddRow("b2", "Evening"))

	items, err := engine.Lookup(context.Background(), testScope)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Morning", items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
