package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type mockReportRepo struct {
	summary    []dto.FeeSummaryRow
	defaulters *models.PageResult[dto.FeeDefaulterRow]
	cashbook   *dto.CashbookReport

	lastFilter dto.FeeDefaulterFilter
	lastFrom   time.Time
	lastTo     time.Time
}

func (m *mockReportRepo) FeeSummary(ctx context.Context, scope models.Scope) ([]dto.FeeSummaryRow, error) {
	return m.summary, nil
}

func (m *mockReportRepo) FeeDefaulters(ctx context.Context, scope models.Scope, req models.PageRequest, filter dto.FeeDefaulterFilter) (*models.PageResult[dto.FeeDefaulterRow], error) {
	m.lastFilter = filter
	return m.defaulters, nil
}

func (m *mockReportRepo) Cashbook(ctx context.Context, scope models.Scope, from, to time.Time) (*dto.CashbookReport, error) {
	m.lastFrom = from
	m.lastTo = to
	report := *m.cashbook
	report.From = from
	report.To = to
	return &report, nil
}

func TestReportServiceFeeSummaryRequiresScope(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, nil)

	_, err := svc.FeeSummary(context.Background(), models.Scope{})
	assert.ErrorIs(t, err, appErrors.ErrTenantScope)
}

func TestReportServiceFeeDefaultersForwardsFilter(t *testing.T) {
	repo := &mockReportRepo{defaulters: &models.PageResult[dto.FeeDefaulterRow]{Draw: 2}}
	svc := NewReportService(repo, nil)

	result, err := svc.FeeDefaulters(context.Background(), serviceScope(), DefaulterSearchRequest{
		PageRequest: models.PageRequest{Draw: 2, Length: 10},
		ClassID:     "c1",
		SectionID:   "sec1",
		MinDue:      500,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Draw)
	assert.Equal(t, "c1", repo.lastFilter.ClassID)
	assert.Equal(t, "sec1", repo.lastFilter.SectionID)
	assert.Equal(t, 500.0, repo.lastFilter.MinDue)
}

func TestReportServiceCashbookInclusiveRange(t *testing.T) {
	repo := &mockReportRepo{cashbook: &dto.CashbookReport{GrandTotal: 100}}
	svc := NewReportService(repo, nil)

	report, err := svc.Cashbook(context.Background(), serviceScope(), CashbookRequest{From: "2024-07-01", To: "2024-07-31"})
	require.NoError(t, err)

	// The repository gets an exclusive upper bound one day past "to", while
	// the payload keeps the date the caller asked for.
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), repo.lastFrom)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), repo.lastTo)
	assert.Equal(t, time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC), report.To)
	assert.Equal(t, 100.0, report.GrandTotal)
}

func TestReportServiceCashbookSingleDay(t *testing.T) {
	repo := &mockReportRepo{cashbook: &dto.CashbookReport{}}
	svc := NewReportService(repo, nil)

	_, err := svc.Cashbook(context.Background(), serviceScope(), CashbookRequest{From: "2024-07-15", To: "2024-07-15"})
	require.NoError(t, err)
	assert.Equal(t, repo.lastFrom.Add(24*time.Hour), repo.lastTo)
}

func TestReportServiceCashbookRejectsBadRange(t *testing.T) {
	svc := NewReportService(&mockReportRepo{cashbook: &dto.CashbookReport{}}, nil)

	cases := []CashbookRequest{
		{From: "not-a-date", To: "2024-07-31"},
		{From: "2024-07-01", To: "31-07-2024"},
		{From: "2024-07-31", To: "2024-07-01"},
	}
	for _, req := range cases {
		_, err := svc.Cashbook(context.Background(), serviceScope(), req)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
}
