package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData holds the fields printed on a student certificate.
type CertificateData struct {
	SchoolName   string
	SchoolPlace  string
	LogoPath     string
	Title        string
	SerialNo     string
	Body         []string
	StudentName  string
	AdmissionNo  string
	SessionLabel string
	IssueDate    string
	SignerTitle  string
}

// CertificateRenderer draws A4 portrait certificates with a framed layout.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a CertificateRenderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces the certificate as PDF bytes.
func (r *CertificateRenderer) Render(cert CertificateData) ([]byte, error) {
	if cert.Title == "" || cert.StudentName == "" {
		return nil, fmt.Errorf("certificate requires a title and student name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Double frame.
	pdf.SetLineWidth(0.8)
	pdf.Rect(10, 10, 190, 277, "D")
	pdf.SetLineWidth(0.2)
	pdf.Rect(12, 12, 186, 273, "D")

	if cert.LogoPath != "" {
		if _, err := os.Stat(cert.LogoPath); err == nil {
			pdf.ImageOptions(cert.LogoPath, 95, 18, 20, 20, false, gofpdf.ImageOptions{}, 0, "")
			pdf.SetY(42)
		} else {
			pdf.SetY(25)
		}
	} else {
		pdf.SetY(25)
	}

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, cert.SchoolName, "", 1, "C", false, 0, "")
	if cert.SchoolPlace != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 6, cert.SchoolPlace, "", 1, "C", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, cert.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "Serial No: "+cert.SerialNo, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	for _, line := range cert.Body {
		pdf.MultiCell(0, 8, line, "", "J", false)
		pdf.Ln(2)
	}

	pdf.Ln(20)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 6, "Date: "+cert.IssueDate, "", 0, "L", false, 0, "")
	signer := cert.SignerTitle
	if signer == "" {
		signer = "Principal"
	}
	pdf.CellFormat(55, 6, "", "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, signer, "T", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
