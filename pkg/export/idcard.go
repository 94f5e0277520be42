package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// IDCardData holds everything printed on one student identity card.
type IDCardData struct {
	SchoolName   string
	SchoolPhone  string
	LogoPath     string
	StudentName  string
	AdmissionNo  string
	ClassName    string
	SectionName  string
	SessionLabel string
	PhotoPath    string
	ValidThrough string
}

// IDCardRenderer draws credit-card sized identity cards.
type IDCardRenderer struct{}

// NewIDCardRenderer constructs an IDCardRenderer.
func NewIDCardRenderer() *IDCardRenderer {
	return &IDCardRenderer{}
}

// Render produces one ID card as PDF bytes. A missing or unreadable photo
// degrades to an initials placeholder rather than failing the card.
func (r *IDCardRenderer) Render(card IDCardData) ([]byte, error) {
	if card.StudentName == "" || card.AdmissionNo == "" {
		return nil, fmt.Errorf("id card requires student name and admission number")
	}

	// CR80 card size.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 85.6, Ht: 54.0},
	})
	pdf.SetMargins(3, 3, 3)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Header band with school identity.
	pdf.SetFillColor(25, 55, 109)
	pdf.Rect(0, 0, 85.6, 12, "F")
	if card.LogoPath != "" {
		if _, err := os.Stat(card.LogoPath); err == nil {
			pdf.ImageOptions(card.LogoPath, 2, 1.5, 9, 9, false, gofpdf.ImageOptions{}, 0, "")
		}
	}
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetXY(12, 2)
	pdf.CellFormat(70, 5, card.SchoolName, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 6)
	pdf.SetXY(12, 7)
	pdf.CellFormat(70, 3, card.SchoolPhone, "", 1, "L", false, 0, "")

	r.drawPhoto(pdf, card, 4, 15, 20, 25)

	pdf.SetTextColor(0, 0, 0)
	labelValue := func(y float64, label, value string) {
		pdf.SetXY(27, y)
		pdf.SetFont("Arial", "B", 7)
		pdf.CellFormat(16, 4, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(40, 4, value, "", 1, "L", false, 0, "")
	}
	pdf.SetXY(27, 15)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(55, 5, card.StudentName, "", 1, "L", false, 0, "")
	labelValue(21, "Adm No", card.AdmissionNo)
	labelValue(26, "Class", strings.TrimSpace(card.ClassName+" "+card.SectionName))
	labelValue(31, "Session", card.SessionLabel)

	pdf.SetFont("Arial", "I", 6)
	pdf.SetXY(3, 48)
	pdf.CellFormat(79.6, 4, "Valid through "+card.ValidThrough, "T", 0, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render id card: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *IDCardRenderer) drawPhoto(pdf *gofpdf.Fpdf, card IDCardData, x, y, w, h float64) {
	if card.PhotoPath != "" {
		if _, err := os.Stat(card.PhotoPath); err == nil {
			pdf.ImageOptions(card.PhotoPath, x, y, w, h, false, gofpdf.ImageOptions{}, 0, "")
			pdf.Rect(x, y, w, h, "D")
			return
		}
	}
	pdf.SetFillColor(230, 230, 230)
	pdf.Rect(x, y, w, h, "FD")
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(x, y+h/2-3)
	pdf.CellFormat(w, 6, initials(card.StudentName), "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func initials(name string) string {
	parts := strings.Fields(name)
	out := ""
	for i, part := range parts {
		if i >= 2 {
			break
		}
		out += strings.ToUpper(part[:1])
	}
	return out
}
