package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
	"github.com/veloxschool/sims-api/internal/repository"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/export"
	"github.com/veloxschool/sims-api/pkg/jobs"
	"github.com/veloxschool/sims-api/pkg/storage"
)

// exportWindowLength bounds how many rows one export may pull.
const exportWindowLength = 10000

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, tenantID, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type exportStudentLister interface {
	ListRows(ctx context.Context, scope models.Scope, req models.PageRequest, classID, sectionID string) (*models.PageResult[models.StudentListRow], error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportPayload travels on the in-memory queue between enqueue and worker.
type ExportPayload struct {
	JobID string
	Scope models.Scope
}

// ExportService renders report datasets in the background and hands back
// signed download URLs.
type ExportService struct {
	store    exportJobStore
	reports  reportRepository
	students exportStudentLister
	storage  exportFileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	queue    *jobs.Queue
	logger   *zap.Logger
	cfg      ExportConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Store    exportJobStore
	Reports  reportRepository
	Students exportStudentLister
	Storage  exportFileStorage
	Signer   *storage.SignedURLSigner
	Logger   *zap.Logger
	Config   ExportConfig
	CSV      csvRenderer
	PDF      pdfRenderer
}

// NewExportService constructs an ExportService. Attach the queue afterwards
// with SetQueue once its handler is bound to Process.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		store:    params.Store,
		reports:  params.Reports,
		students: params.Students,
		storage:  params.Storage,
		csv:      csv,
		pdf:      pdf,
		signer:   params.Signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// SetQueue binds the worker queue used for background processing.
func (s *ExportService) SetQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Enqueue records an export job and schedules it for background rendering.
func (s *ExportService) Enqueue(ctx context.Context, scope models.Scope, typ models.ExportType, params models.ExportJobParams) (*models.ExportJob, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	switch typ {
	case models.ExportTypeFeeSummary, models.ExportTypeFeeDefaulters, models.ExportTypeCashbook, models.ExportTypeStudentList:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export type")
	}
	switch params.Format {
	case models.ExportFormatCSV, models.ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export worker unavailable")
	}

	job := &models.ExportJob{
		TenantID:  scope.TenantID,
		SessionID: scope.SessionID,
		Type:      typ,
		Params:    params,
		Status:    models.ExportStatusQueued,
		CreatedBy: scope.UserID,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record export job")
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    string(typ),
		Payload: ExportPayload{JobID: job.ID, Scope: scope},
	}); err != nil {
		s.markFailed(ctx, job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule export job")
	}

	s.logger.Info("export queued",
		zap.String("job", job.ID),
		zap.String("type", string(typ)),
		zap.String("tenant", scope.TenantCode))
	return job, nil
}

// Status returns the job row for polling clients.
func (s *ExportService) Status(ctx context.Context, scope models.Scope, jobID string) (*models.ExportJob, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	job, err := s.store.GetByID(ctx, scope.TenantID, jobID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Process is the queue handler rendering one export job.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ExportPayload)
	if !ok {
		return fmt.Errorf("export job %s: unexpected payload %T", job.ID, job.Payload)
	}
	scope := payload.Scope

	row, err := s.store.GetByID(ctx, scope.TenantID, payload.JobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", payload.JobID, err)
	}

	processing := models.ExportStatusProcessing
	if err := s.store.Update(ctx, row.ID, repository.UpdateExportJobParams{Status: &processing}); err != nil {
		s.logger.Warn("failed to mark export processing", zap.String("job", row.ID), zap.Error(err))
	}

	dataset, title, err := s.buildDataset(ctx, scope, row)
	if err != nil {
		s.markFailed(ctx, row.ID, err)
		return err
	}

	var data []byte
	switch row.Params.Format {
	case models.ExportFormatCSV:
		data, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		data, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", row.Params.Format)
	}
	if err != nil {
		s.markFailed(ctx, row.ID, err)
		return err
	}

	filename := fmt.Sprintf("%s/%s_%s.%s",
		scope.TenantCode,
		row.Type,
		time.Now().UTC().Format("20060102_150405"),
		row.Params.Format)
	relPath, err := s.storage.Save(filename, data)
	if err != nil {
		s.markFailed(ctx, row.ID, err)
		return err
	}

	token, _, err := s.signer.Generate(row.ID, relPath)
	if err != nil {
		s.markFailed(ctx, row.ID, err)
		return err
	}
	resultURL := fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)

	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	if err := s.store.Update(ctx, row.ID, repository.UpdateExportJobParams{
		Status:     &finished,
		ResultURL:  &resultURL,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("finalise export job %s: %w", row.ID, err)
	}

	s.logger.Info("export finished", zap.String("job", row.ID), zap.String("file", relPath))
	return nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes expired export files and clears the download links of job
// rows whose output is gone.
func (s *ExportService) Cleanup(ctx context.Context) ([]string, error) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}

	stale, err := s.store.ListFinishedBefore(ctx, time.Now().Add(-s.cfg.ResultTTL), 100)
	if err != nil {
		s.logger.Warn("failed to list stale export jobs", zap.Error(err))
		return removed, nil
	}
	empty := ""
	for _, job := range stale {
		if job.ResultURL == nil || *job.ResultURL == "" {
			continue
		}
		if err := s.store.Update(ctx, job.ID, repository.UpdateExportJobParams{ResultURL: &empty}); err != nil {
			s.logger.Warn("failed to clear stale export link", zap.String("job", job.ID), zap.Error(err))
		}
	}
	return removed, nil
}

func (s *ExportService) markFailed(ctx context.Context, jobID string, cause error) {
	failed := models.ExportStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.store.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark export failed", zap.String("job", jobID), zap.Error(err))
	}
}

func (s *ExportService) buildDataset(ctx context.Context, scope models.Scope, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeFeeSummary:
		return s.feeSummaryDataset(ctx, scope)
	case models.ExportTypeFeeDefaulters:
		return s.defaultersDataset(ctx, scope, job.Params)
	case models.ExportTypeCashbook:
		return s.cashbookDataset(ctx, scope, job.Params)
	case models.ExportTypeStudentList:
		return s.studentListDataset(ctx, scope, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) feeSummaryDataset(ctx context.Context, scope models.Scope) (export.Dataset, string, error) {
	rows, err := s.reports.FeeSummary(ctx, scope)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Class":     row.ClassName,
			"Students":  fmt.Sprintf("%d", row.StudentCount),
			"Expected":  fmt.Sprintf("%.2f", row.ExpectedTotal),
			"Collected": fmt.Sprintf("%.2f", row.Collected),
			"Balance":   fmt.Sprintf("%.2f", row.Balance),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Class", "Students", "Expected", "Collected", "Balance"},
		Rows:    dataRows,
	}
	return dataset, "Fee Collection Summary", nil
}

func (s *ExportService) defaultersDataset(ctx context.Context, scope models.Scope, params models.ExportJobParams) (export.Dataset, string, error) {
	result, err := s.reports.FeeDefaulters(ctx, scope, models.PageRequest{Length: exportWindowLength}, dto.FeeDefaulterFilter{
		ClassID:   params.ClassID,
		SectionID: params.SectionID,
	})
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(result.Data))
	for _, row := range result.Data {
		dataRows = append(dataRows, map[string]string{
			"Adm No":   row.AdmissionNo,
			"Student":  row.StudentName,
			"Class":    strings.TrimSpace(row.ClassName + " " + row.SectionName),
			"Guardian": row.GuardianPhone,
			"Due":      fmt.Sprintf("%.2f", row.DueAmount),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Adm No", "Student", "Class", "Guardian", "Due"},
		Rows:    dataRows,
	}
	return dataset, "Fee Defaulters", nil
}

func (s *ExportService) cashbookDataset(ctx context.Context, scope models.Scope, params models.ExportJobParams) (export.Dataset, string, error) {
	if params.From == nil || params.To == nil {
		return export.Dataset{}, "", fmt.Errorf("cashbook export requires from and to dates")
	}
	report, err := s.reports.Cashbook(ctx, scope, *params.From, params.To.Add(24*time.Hour))
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(report.Entries))
	for _, entry := range report.Entries {
		dataRows = append(dataRows, map[string]string{
			"Receipt": entry.ReceiptNo,
			"Date":    entry.ReceiptDate.Format("2006-01-02"),
			"Student": entry.StudentName,
			"Head":    entry.HeadName,
			"Mode":    entry.PaymentMode,
			"Amount":  fmt.Sprintf("%.2f", entry.Amount),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Receipt", "Date", "Student", "Head", "Mode", "Amount"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Cashbook %s to %s", params.From.Format("2006-01-02"), params.To.Format("2006-01-02"))
	return dataset, title, nil
}

func (s *ExportService) studentListDataset(ctx context.Context, scope models.Scope, params models.ExportJobParams) (export.Dataset, string, error) {
	result, err := s.students.ListRows(ctx, scope, models.PageRequest{Length: exportWindowLength}, params.ClassID, params.SectionID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(result.Data))
	for _, row := range result.Data {
		dataRows = append(dataRows, map[string]string{
			"Adm No":   row.AdmissionNo,
			"Student":  row.FullName(),
			"Class":    strings.TrimSpace(row.ClassName + " " + row.SectionName),
			"Guardian": row.GuardianName,
			"Phone":    row.GuardianPhone,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Adm No", "Student", "Class", "Guardian", "Phone"},
		Rows:    dataRows,
	}
	return dataset, "Student List", nil
}
