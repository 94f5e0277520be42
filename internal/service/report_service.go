package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type reportRepository interface {
	FeeSummary(ctx context.Context, scope models.Scope) ([]dto.FeeSummaryRow, error)
	FeeDefaulters(ctx context.Context, scope models.Scope, req models.PageRequest, filter dto.FeeDefaulterFilter) (*models.PageResult[dto.FeeDefaulterRow], error)
	Cashbook(ctx context.Context, scope models.Scope, from, to time.Time) (*dto.CashbookReport, error)
}

// DefaulterSearchRequest is the grid request plus defaulter filters.
type DefaulterSearchRequest struct {
	models.PageRequest
	ClassID   string  `form:"classId" json:"classId"`
	SectionID string  `form:"sectionId" json:"sectionId"`
	MinDue    float64 `form:"minDue" json:"minDue"`
}

// CashbookRequest bounds the cashbook date range.
type CashbookRequest struct {
	From string `form:"from" json:"from" validate:"required"`
	To   string `form:"to" json:"to" validate:"required"`
}

// ReportService runs the read-only fee reports.
type ReportService struct {
	repo   reportRepository
	logger *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, logger: logger}
}

// FeeSummary returns the class-wise collection rollup.
func (s *ReportService) FeeSummary(ctx context.Context, scope models.Scope) ([]dto.FeeSummaryRow, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	rows, err := s.repo.FeeSummary(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build fee summary")
	}
	return rows, nil
}

// FeeDefaulters returns one window of students with outstanding dues.
func (s *ReportService) FeeDefaulters(ctx context.Context, scope models.Scope, req DefaulterSearchRequest) (*models.PageResult[dto.FeeDefaulterRow], error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	filter := dto.FeeDefaulterFilter{ClassID: req.ClassID, SectionID: req.SectionID, MinDue: req.MinDue}
	result, err := s.repo.FeeDefaulters(ctx, scope, req.PageRequest, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee defaulters")
	}
	return result, nil
}

// Cashbook returns the receipts and per-mode totals for a date range. The
// range is inclusive of the from day and the to day.
func (s *ReportService) Cashbook(ctx context.Context, scope models.Scope, req CashbookRequest) (*dto.CashbookReport, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from date must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date must not precede from date")
	}

	report, err := s.repo.Cashbook(ctx, scope, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build cashbook")
	}
	report.To = to
	return report, nil
}
