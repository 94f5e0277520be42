package dto

import "time"

// DashboardCounts aggregates the headline numbers shown on the admin landing
// page.
type DashboardCounts struct {
	Students     int `db:"students" json:"students"`
	Employees    int `db:"employees" json:"employees"`
	Vehicles     int `db:"vehicles" json:"vehicles"`
	Notices      int `db:"notices" json:"notices"`
	FeeDefaulter int `db:"fee_defaulters" json:"fee_defaulters"`
}

// DashboardCollection summarises fee income windows.
type DashboardCollection struct {
	Today       float64 `db:"today" json:"today"`
	ThisMonth   float64 `db:"this_month" json:"this_month"`
	ThisSession float64 `db:"this_session" json:"this_session"`
}

// DashboardReceipt is one line in the recent receipts panel.
type DashboardReceipt struct {
	ReceiptNo   string    `db:"receipt_no" json:"receipt_no"`
	StudentName string    `db:"student_name" json:"student_name"`
	Amount      float64   `db:"amount" json:"amount"`
	ReceiptDate time.Time `db:"receipt_date" json:"receipt_date"`
}

// DashboardResponse is the composed dashboard payload.
type DashboardResponse struct {
	Counts         DashboardCounts     `json:"counts"`
	Collection     DashboardCollection `json:"collection"`
	RecentReceipts []DashboardReceipt  `json:"recent_receipts"`
	Notices        []DashboardNotice   `json:"notices"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// DashboardNotice is the trimmed notice projection for the landing page.
type DashboardNotice struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	PublishDate time.Time `db:"publish_date" json:"publish_date"`
}
