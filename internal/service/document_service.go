package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
	"github.com/veloxschool/sims-api/pkg/export"
)

type documentStudentRepository interface {
	FindRowByID(ctx context.Context, scope models.Scope, id string) (*models.StudentListRow, error)
}

type documentTenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
}

type idCardRenderer interface {
	Render(card export.IDCardData) ([]byte, error)
}

type certificateRenderer interface {
	Render(cert export.CertificateData) ([]byte, error)
}

// CertificateType selects the certificate wording.
type CertificateType string

const (
	CertificateStudy    CertificateType = "study"
	CertificateTransfer CertificateType = "transfer"
)

// DocumentConfig tunes document generation.
type DocumentConfig struct {
	PhotoDir       string
	IDCardValidity time.Duration
}

// Document is a rendered file ready to stream to the caller.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentService renders per-student PDFs: identity cards and certificates.
// School identity on the documents comes from the tenant row, never from the
// request.
type DocumentService struct {
	students documentStudentRepository
	tenants  documentTenantRepository
	idcard   idCardRenderer
	cert     certificateRenderer
	logger   *zap.Logger
	now      func() time.Time
	cfg      DocumentConfig
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(students documentStudentRepository, tenants documentTenantRepository, idcard idCardRenderer, cert certificateRenderer, logger *zap.Logger, cfg DocumentConfig) *DocumentService {
	if idcard == nil {
		idcard = export.NewIDCardRenderer()
	}
	if cert == nil {
		cert = export.NewCertificateRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IDCardValidity <= 0 {
		cfg.IDCardValidity = 365 * 24 * time.Hour
	}
	return &DocumentService{students: students, tenants: tenants, idcard: idcard, cert: cert, logger: logger, now: time.Now, cfg: cfg}
}

// IDCard renders the identity card for one student.
func (s *DocumentService) IDCard(ctx context.Context, scope models.Scope, studentID string) (*Document, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	student, tenant, err := s.load(ctx, scope, studentID)
	if err != nil {
		return nil, err
	}

	photo := ""
	if student.PhotoPath != "" {
		photo = filepath.Join(s.cfg.PhotoDir, student.PhotoPath)
	}
	validThrough := s.now().UTC().Add(s.cfg.IDCardValidity).Format("Jan 2006")

	data, err := s.idcard.Render(export.IDCardData{
		SchoolName:   tenant.Name,
		SchoolPhone:  tenant.Phone,
		LogoPath:     tenant.LogoPath,
		StudentName:  student.FullName(),
		AdmissionNo:  student.AdmissionNo,
		ClassName:    student.ClassName,
		SectionName:  student.SectionName,
		SessionLabel: fmt.Sprintf("%d-%d", scope.SessionYear, scope.SessionYear+1),
		PhotoPath:    photo,
		ValidThrough: validThrough,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render id card")
	}

	s.logger.Info("id card rendered",
		zap.String("student", studentID),
		zap.String("tenant", scope.TenantCode))
	return &Document{
		Filename:    fmt.Sprintf("idcard_%s.pdf", sanitizeFilename(student.AdmissionNo)),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// Certificate renders a study or transfer certificate for one student.
func (s *DocumentService) Certificate(ctx context.Context, scope models.Scope, studentID string, certType CertificateType) (*Document, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	student, tenant, err := s.load(ctx, scope, studentID)
	if err != nil {
		return nil, err
	}

	title, body := s.certificateText(student, tenant, certType, scope)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown certificate type")
	}

	issued := s.now().UTC()
	data, err := s.cert.Render(export.CertificateData{
		SchoolName:   tenant.Name,
		SchoolPlace:  tenant.Place,
		LogoPath:     tenant.LogoPath,
		Title:        title,
		SerialNo:     fmt.Sprintf("%s/%d/%s", scope.TenantCode, scope.SessionYear, student.AdmissionNo),
		Body:         body,
		StudentName:  student.FullName(),
		AdmissionNo:  student.AdmissionNo,
		SessionLabel: fmt.Sprintf("%d-%d", scope.SessionYear, scope.SessionYear+1),
		IssueDate:    issued.Format("02 Jan 2006"),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	s.logger.Info("certificate rendered",
		zap.String("student", studentID),
		zap.String("type", string(certType)),
		zap.String("tenant", scope.TenantCode))
	return &Document{
		Filename:    fmt.Sprintf("%s_certificate_%s.pdf", certType, sanitizeFilename(student.AdmissionNo)),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *DocumentService) load(ctx context.Context, scope models.Scope, studentID string) (*models.StudentListRow, *models.Tenant, error) {
	student, err := s.students.FindRowByID(ctx, scope, studentID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	tenant, err := s.tenants.FindByID(ctx, scope.TenantID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school profile")
	}
	return student, tenant, nil
}

func (s *DocumentService) certificateText(student *models.StudentListRow, tenant *models.Tenant, certType CertificateType, scope models.Scope) (string, []string) {
	name := student.FullName()
	classLine := strings.TrimSpace(student.ClassName + " " + student.SectionName)
	session := fmt.Sprintf("%d-%d", scope.SessionYear, scope.SessionYear+1)

	switch certType {
	case CertificateStudy:
		return "STUDY CERTIFICATE", []string{
			fmt.Sprintf("This is to certify that %s, admission number %s, is a bonafide student of %s.", name, student.AdmissionNo, tenant.Name),
			fmt.Sprintf("The student is enrolled in class %s for the academic session %s.", classLine, session),
			"This certificate is issued upon request for official purposes.",
		}
	case CertificateTransfer:
		return "TRANSFER CERTIFICATE", []string{
			fmt.Sprintf("This is to certify that %s, admission number %s, was a student of %s.", name, student.AdmissionNo, tenant.Name),
			fmt.Sprintf("The student last attended class %s during the academic session %s and has no dues outstanding.", classLine, session),
			"The student is hereby granted transfer and we wish them success in future studies.",
		}
	default:
		return "", nil
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
