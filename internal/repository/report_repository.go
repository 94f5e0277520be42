package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
)

// ReportRepository runs the read-only aggregation queries behind the fee
// reports and the dashboard. Every query is scoped by tenant and session.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// FeeSummary returns the class-wise expected/collected/balance rollup.
func (r *ReportRepository) FeeSummary(ctx context.Context, scope models.Scope) ([]dto.FeeSummaryRow, error) {
	const query = `SELECT c.id AS class_id, c.name AS class_name,
COUNT(DISTINCT s.id) AS student_count,
COALESCE(SUM(fd.amount), 0) AS expected_total,
COALESCE(SUM(fd.paid_amount), 0) AS collected,
COALESCE(SUM(fd.amount - fd.paid_amount), 0) AS balance
FROM classes c
JOIN students s ON s.class_id = c.id AND NOT s.is_deleted
LEFT JOIN fee_demands fd ON fd.student_id = s.id AND NOT fd.is_deleted
WHERE c.tenant_id = $1 AND c.session_id = $2 AND NOT c.is_deleted
GROUP BY c.id, c.name
ORDER BY c.sort_order, c.name`
	rows := []dto.FeeSummaryRow{}
	if err := r.db.SelectContext(ctx, &rows, query, scope.TenantID, scope.SessionID); err != nil {
		return nil, fmt.Errorf("fee summary: %w", err)
	}
	return rows, nil
}

// FeeDefaulters returns the paginated list of students with outstanding dues,
// in the same draw/total/filtered envelope the grids use.
func (r *ReportRepository) FeeDefaulters(ctx context.Context, scope models.Scope, req models.PageRequest, filter dto.FeeDefaulterFilter) (*models.PageResult[dto.FeeDefaulterRow], error) {
	req.Normalize()

	where := `s.tenant_id = $1 AND s.session_id = $2 AND NOT s.is_deleted`
	args := []interface{}{scope.TenantID, scope.SessionID}
	if filter.ClassID != "" {
		where += fmt.Sprintf(" AND s.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		where += fmt.Sprintf(" AND s.section_id = $%d", len(args)+1)
		args = append(args, filter.SectionID)
	}

	having := "SUM(fd.amount - fd.paid_amount) > 0"
	if filter.MinDue > 0 {
		having = fmt.Sprintf("SUM(fd.amount - fd.paid_amount) >= $%d", len(args)+1)
		args = append(args, filter.MinDue)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM (
SELECT s.id FROM students s
JOIN fee_demands fd ON fd.student_id = s.id AND NOT fd.is_deleted
WHERE %s GROUP BY s.id HAVING %s) d`, where, having)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count fee defaulters: %w", err)
	}

	filtered := total
	search := strings.TrimSpace(req.SearchValue)
	if search != "" {
		idx := len(args) + 1
		where += fmt.Sprintf(" AND (LOWER(s.admission_no) LIKE $%d OR LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d)", idx, idx, idx)
		args = append(args, "%"+strings.ToLower(search)+"%")
		filteredQuery := fmt.Sprintf(`SELECT COUNT(*) FROM (
SELECT s.id FROM students s
JOIN fee_demands fd ON fd.student_id = s.id AND NOT fd.is_deleted
WHERE %s GROUP BY s.id HAVING %s) d`, where, having)
		if err := r.db.GetContext(ctx, &filtered, filteredQuery, args...); err != nil {
			return nil, fmt.Errorf("count filtered fee defaulters: %w", err)
		}
	}

	result := &models.PageResult[dto.FeeDefaulterRow]{
		Draw:            req.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            []dto.FeeDefaulterRow{},
	}
	if req.Length == 0 {
		return result, nil
	}

	sortExpr := map[string]string{
		"admissionNo": "s.admission_no",
		"studentName": "student_name",
		"dueAmount":   "due_amount",
		"className":   "class_name",
	}[req.SortColumn]
	if sortExpr == "" {
		sortExpr = "due_amount"
	}
	dir := strings.ToUpper(strings.TrimSpace(req.SortDirection))
	if dir != "ASC" && dir != "DESC" {
		dir = "DESC"
	}

	listQuery := fmt.Sprintf(`SELECT s.id AS student_id, s.admission_no,
TRIM(s.first_name || ' ' || s.last_name) AS student_name,
COALESCE(c.name, '') AS class_name, COALESCE(sec.name, '') AS section_name,
s.guardian_phone, SUM(fd.amount - fd.paid_amount) AS due_amount
FROM students s
JOIN fee_demands fd ON fd.student_id = s.id AND NOT fd.is_deleted
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN sections sec ON sec.id = s.section_id
WHERE %s
GROUP BY s.id, s.admission_no, s.first_name, s.last_name, c.name, sec.name, s.guardian_phone
HAVING %s
ORDER BY %s %s LIMIT %d OFFSET %d`, where, having, sortExpr, dir, req.Length, req.Start)
	if err := r.db.SelectContext(ctx, &result.Data, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list fee defaulters: %w", err)
	}
	return result, nil
}

// Cashbook returns the receipt lines and payment-mode totals for a date range.
func (r *ReportRepository) Cashbook(ctx context.Context, scope models.Scope, from, to time.Time) (*dto.CashbookReport, error) {
	const entriesQuery = `SELECT fr.receipt_no, fr.receipt_date,
TRIM(s.first_name || ' ' || s.last_name) AS student_name,
COALESCE(fh.head_name, '') AS head_name, fr.payment_mode, fr.amount
FROM fee_receipts fr
JOIN students s ON s.id = fr.student_id
LEFT JOIN fee_heads fh ON fh.id = fr.head_id
WHERE fr.tenant_id = $1 AND fr.session_id = $2 AND NOT fr.is_deleted
AND fr.receipt_date >= $3 AND fr.receipt_date < $4
ORDER BY fr.receipt_date, fr.receipt_no`
	report := &dto.CashbookReport{From: from, To: to, Entries: []dto.CashbookEntry{}, ModeTotals: []dto.CashbookModeTotal{}}
	if err := r.db.SelectContext(ctx, &report.Entries, entriesQuery, scope.TenantID, scope.SessionID, from, to); err != nil {
		return nil, fmt.Errorf("cashbook entries: %w", err)
	}

	const totalsQuery = `SELECT fr.payment_mode, COALESCE(SUM(fr.amount), 0) AS total
FROM fee_receipts fr
WHERE fr.tenant_id = $1 AND fr.session_id = $2 AND NOT fr.is_deleted
AND fr.receipt_date >= $3 AND fr.receipt_date < $4
GROUP BY fr.payment_mode
ORDER BY fr.payment_mode`
	if err := r.db.SelectContext(ctx, &report.ModeTotals, totalsQuery, scope.TenantID, scope.SessionID, from, to); err != nil {
		return nil, fmt.Errorf("cashbook totals: %w", err)
	}
	for _, mt := range report.ModeTotals {
		report.GrandTotal += mt.Total
	}
	return report, nil
}

// DashboardCounts returns the headline entity counts for the landing page.
func (r *ReportRepository) DashboardCounts(ctx context.Context, scope models.Scope) (*dto.DashboardCounts, error) {
	const query = `SELECT
(SELECT COUNT(*) FROM students WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted AND is_active) AS students,
(SELECT COUNT(*) FROM employees WHERE tenant_id = $1 AND NOT is_deleted AND is_active) AS employees,
(SELECT COUNT(*) FROM transport_vehicles WHERE tenant_id = $1 AND NOT is_deleted AND is_active) AS vehicles,
(SELECT COUNT(*) FROM notices WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted AND is_active) AS notices,
(SELECT COUNT(*) FROM (
    SELECT fd.student_id FROM fee_demands fd
    JOIN students s ON s.id = fd.student_id AND NOT s.is_deleted
    WHERE fd.tenant_id = $1 AND fd.session_id = $2 AND NOT fd.is_deleted
    GROUP BY fd.student_id HAVING SUM(fd.amount - fd.paid_amount) > 0) d) AS fee_defaulters`
	var counts dto.DashboardCounts
	if err := r.db.GetContext(ctx, &counts, query, scope.TenantID, scope.SessionID); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return &counts, nil
}

// DashboardCollection returns the today/month/session fee income totals.
func (r *ReportRepository) DashboardCollection(ctx context.Context, scope models.Scope, now time.Time) (*dto.DashboardCollection, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	const query = `SELECT
COALESCE(SUM(amount) FILTER (WHERE receipt_date >= $3), 0) AS today,
COALESCE(SUM(amount) FILTER (WHERE receipt_date >= $4), 0) AS this_month,
COALESCE(SUM(amount), 0) AS this_session
FROM fee_receipts
WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted`
	var collection dto.DashboardCollection
	if err := r.db.GetContext(ctx, &collection, query, scope.TenantID, scope.SessionID, dayStart, monthStart); err != nil {
		return nil, fmt.Errorf("dashboard collection: %w", err)
	}
	return &collection, nil
}

// RecentReceipts returns the latest fee receipts for the dashboard panel.
func (r *ReportRepository) RecentReceipts(ctx context.Context, scope models.Scope, limit int) ([]dto.DashboardReceipt, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT fr.receipt_no, TRIM(s.first_name || ' ' || s.last_name) AS student_name, fr.amount, fr.receipt_date
FROM fee_receipts fr
JOIN students s ON s.id = fr.student_id
WHERE fr.tenant_id = $1 AND fr.session_id = $2 AND NOT fr.is_deleted
ORDER BY fr.receipt_date DESC, fr.created_at DESC LIMIT $3`
	receipts := []dto.DashboardReceipt{}
	if err := r.db.SelectContext(ctx, &receipts, query, scope.TenantID, scope.SessionID, limit); err != nil {
		return nil, fmt.Errorf("recent receipts: %w", err)
	}
	return receipts, nil
}

// RecentNotices returns the latest published notices for the dashboard panel.
func (r *ReportRepository) RecentNotices(ctx context.Context, scope models.Scope, limit int) ([]dto.DashboardNotice, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT id, title, publish_date FROM notices
WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted AND is_active
ORDER BY publish_date DESC LIMIT $3`
	notices := []dto.DashboardNotice{}
	if err := r.db.SelectContext(ctx, &notices, query, scope.TenantID, scope.SessionID, limit); err != nil {
		return nil, fmt.Errorf("recent notices: %w", err)
	}
	return notices, nil
}
