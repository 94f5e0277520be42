package dto

import "time"

// FeeSummaryRow is the class-wise fee collection summary line.
type FeeSummaryRow struct {
	ClassID       string  `db:"class_id" json:"class_id"`
	ClassName     string  `db:"class_name" json:"class_name"`
	StudentCount  int     `db:"student_count" json:"student_count"`
	ExpectedTotal float64 `db:"expected_total" json:"expected_total"`
	Collected     float64 `db:"collected" json:"collected"`
	Balance       float64 `db:"balance" json:"balance"`
}

// FeeDefaulterRow is one student with outstanding dues.
type FeeDefaulterRow struct {
	StudentID     string  `db:"student_id" json:"student_id"`
	AdmissionNo   string  `db:"admission_no" json:"admission_no"`
	StudentName   string  `db:"student_name" json:"student_name"`
	ClassName     string  `db:"class_name" json:"class_name"`
	SectionName   string  `db:"section_name" json:"section_name"`
	GuardianPhone string  `db:"guardian_phone" json:"guardian_phone"`
	DueAmount     float64 `db:"due_amount" json:"due_amount"`
}

// FeeDefaulterFilter narrows the defaulters list.
type FeeDefaulterFilter struct {
	ClassID   string
	SectionID string
	MinDue    float64
}

// CashbookEntry is one receipt line in the date-ranged cashbook.
type CashbookEntry struct {
	ReceiptNo   string    `db:"receipt_no" json:"receipt_no"`
	ReceiptDate time.Time `db:"receipt_date" json:"receipt_date"`
	StudentName string    `db:"student_name" json:"student_name"`
	HeadName    string    `db:"head_name" json:"head_name"`
	PaymentMode string    `db:"payment_mode" json:"payment_mode"`
	Amount      float64   `db:"amount" json:"amount"`
}

// CashbookModeTotal aggregates receipts per payment mode.
type CashbookModeTotal struct {
	PaymentMode string  `db:"payment_mode" json:"payment_mode"`
	Total       float64 `db:"total" json:"total"`
}

// CashbookReport is the composed cashbook payload.
type CashbookReport struct {
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
	Entries    []CashbookEntry     `json:"entries"`
	ModeTotals []CashbookModeTotal `json:"mode_totals"`
	GrandTotal float64             `json:"grand_total"`
}
