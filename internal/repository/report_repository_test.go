package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
)

var reportScope = models.Scope{
	TenantID:    "t1",
	TenantCode:  "SCH001",
	SessionID:   "s1",
	SessionYear: 2024,
	UserID:      "u1",
	Role:        models.RoleAdmin,
}

func newReportMock(t *testing.T) (*ReportRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewReportRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestReportRepositoryFeeSummaryScopesTenant(t *testing.T) {
	repo, mock, cleanup := newReportMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.tenant_id = $1 AND c.session_id = $2")).
		WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "class_name", "student_count", "expected_total", "collected", "balance"}).
			AddRow("c1", "Class 1", 30, 30000.0, 24000.0, 6000.0).
			AddRow("c2", "Class 2", 28, 28000.0, 28000.0, 0.0))

	rows, err := repo.FeeSummary(context.Background(), reportScope)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Class 1", rows[0].ClassName)
	assert.Equal(t, 6000.0, rows[0].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryFeeDefaultersFilters(t *testing.T) {
	repo, mock, cleanup := newReportMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (")).
		WithArgs("t1", "s1", "c1", 500.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY due_amount DESC LIMIT 10 OFFSET 0")).
		WithArgs("t1", "s1", "c1", 500.0).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "admission_no", "student_name", "class_name", "section_name", "guardian_phone", "due_amount"}).
			AddRow("st1", "ADM-001", "Ravi Kumar", "Class 1", "A", "9999", 1200.0))

	result, err := repo.FeeDefaulters(context.Background(), reportScope,
		models.PageRequest{Draw: 1, Length: 10},
		dto.FeeDefaulterFilter{ClassID: "c1", MinDue: 500})
	require.NoError(t, err)
	assert.Equal(t, 3, result.RecordsTotal)
	assert.Equal(t, 3, result.RecordsFiltered)
	require.Len(t, result.Data, 1)
	assert.Equal(t, 1200.0, result.Data[0].DueAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryFeeDefaultersSearchCountsTwice(t *testing.T) {
	repo, mock, cleanup := newReportMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (")).
		WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(s.admission_no) LIKE $3")).
		WithArgs("t1", "s1", "%ravi%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10 OFFSET 0")).
		WithArgs("t1", "s1", "%ravi%").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "admission_no", "student_name", "class_name", "section_name", "guardian_phone", "due_amount"}).
			AddRow("st1", "ADM-001", "Ravi Kumar", "Class 1", "A", "9999", 700.0).
			AddRow("st2", "ADM-002", "Ravi Singh", "Class 1", "B", "8888", 300.0))

	result, err := repo.FeeDefaulters(context.Background(), reportScope,
		models.PageRequest{Length: 10, SearchValue: "Ravi"},
		dto.FeeDefaulterFilter{})
	require.NoError(t, err)
	assert.Equal(t, 12, result.RecordsTotal)
	assert.Equal(t, 2, result.RecordsFiltered)
	assert.Len(t, result.Data, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCashbookHalfOpenRange(t *testing.T) {
	repo, mock, cleanup := newReportMock(t)
	defer cleanup()

	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("fr.receipt_date >= $3 AND fr.receipt_date < $4")).
		WithArgs("t1", "s1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"receipt_no", "receipt_date", "student_name", "head_name", "payment_mode", "amount"}).
			AddRow("R-001", from, "Ravi Kumar", "Tuition", "CASH", 500.0).
			AddRow("R-002", from.AddDate(0, 0, 3), "Meena Das", "Transport", "UPI", 250.0))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY fr.payment_mode")).
		WithArgs("t1", "s1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"payment_mode", "total"}).
			AddRow("CASH", 500.0).
			AddRow("UPI", 250.0))

	report, err := repo.Cashbook(context.Background(), reportScope, from, to)
	require.NoError(t, err)
	assert.Len(t, report.Entries, 2)
	assert.Equal(t, 750.0, report.GrandTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDashboardCounts(t *testing.T) {
	repo, mock, cleanup := newReportMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("AS fee_defaulters")).
		WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"students", "employees", "vehicles", "notices", "fee_defaulters"}).
			AddRow(480, 35, 6, 4, 52))

	counts, err := repo.DashboardCounts(context.Background(), reportScope)
	require.NoError(t, err)
	assert.Equal(t, 480, counts.Students)
	assert.Equal(t, 52, counts.FeeDefaulter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryRecentReceiptsDefaultLimit(t *testing.T) {
	repo, mock, cleanup := newReportMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY fr.receipt_date DESC, fr.created_at DESC LIMIT $3")).
		WithArgs("t1", "s1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"receipt_no", "student_name", "amount", "receipt_date"}))

	receipts, err := repo.RecentReceipts(context.Background(), reportScope, 0)
	require.NoError(t, err)
	assert.Empty(t, receipts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
