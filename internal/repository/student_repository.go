package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/veloxschool/sims-api/internal/datatable"
	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

var studentColumns = withRecordColumns(
	"admission_no", "first_name", "last_name", "class_id", "section_id", "batch_id",
	"gender", "date_of_birth", "guardian_name", "guardian_phone", "address", "photo_path",
)

// StudentRepository persists student records. The common grid and CRUD shape
// comes from the engine; the joined grid projection and photo updates are its
// own queries.
type StudentRepository struct {
	*datatable.Engine[models.Student, *models.Student]
	db *sqlx.DB
}

// NewStudentRepository builds the student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{
		Engine: datatable.NewEngine[models.Student, *models.Student](db, datatable.Descriptor{
			Table:         "students",
			SelectColumns: studentColumns,
			NameColumn:    "admission_no",
			SearchColumns: []string{"admission_no", "first_name", "last_name", "guardian_name"},
			SortColumns: map[string]string{
				"admissionNo": "admission_no",
				"firstName":   "first_name",
				"sortOrder":   "sort_order",
				"createdAt":   "created_at",
			},
			DefaultSort:   "admission_no ASC",
			SessionScoped: true,
			InsertColumns: []string{"admission_no", "first_name", "last_name", "class_id", "section_id", "batch_id", "gender", "date_of_birth", "guardian_name", "guardian_phone", "address", "photo_path"},
			UpdateColumns: []string{"admission_no", "first_name", "last_name", "class_id", "section_id", "batch_id", "gender", "date_of_birth", "guardian_name", "guardian_phone", "address"},
		}),
		db: db,
	}
}

// ListRows returns the grid projection joining class and section names,
// optionally filtered by class/section on top of the search window.
func (r *StudentRepository) ListRows(ctx context.Context, scope models.Scope, req models.PageRequest, classID, sectionID string) (*models.PageResult[models.StudentListRow], error) {
	req.Normalize()

	where := "s.tenant_id = $1 AND s.session_id = $2 AND s.session_year = $3 AND NOT s.is_deleted"
	args := []interface{}{scope.TenantID, scope.SessionID, scope.SessionYear}
	if classID != "" {
		where += fmt.Sprintf(" AND s.class_id = $%d", len(args)+1)
		args = append(args, classID)
	}
	if sectionID != "" {
		where += fmt.Sprintf(" AND s.section_id = $%d", len(args)+1)
		args = append(args, sectionID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students s WHERE "+where, args...); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	filtered := total
	search := strings.TrimSpace(req.SearchValue)
	if search != "" {
		idx := len(args) + 1
		where += fmt.Sprintf(" AND (LOWER(s.admission_no) LIKE $%d OR LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.guardian_name) LIKE $%d)", idx, idx, idx, idx)
		args = append(args, "%"+strings.ToLower(search)+"%")
		if err := r.db.GetContext(ctx, &filtered, "SELECT COUNT(*) FROM students s WHERE "+where, args...); err != nil {
			return nil, fmt.Errorf("count filtered students: %w", err)
		}
	}

	result := &models.PageResult[models.StudentListRow]{
		Draw:            req.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            []models.StudentListRow{},
	}
	if req.Length == 0 {
		return result, nil
	}

	sortExpr := map[string]string{
		"admissionNo": "s.admission_no",
		"firstName":   "s.first_name",
		"className":   "c.name",
		"createdAt":   "s.created_at",
	}[req.SortColumn]
	if sortExpr == "" {
		sortExpr = "s.admission_no"
	}
	dir := strings.ToUpper(strings.TrimSpace(req.SortDirection))
	if dir != "ASC" && dir != "DESC" {
		dir = "ASC"
	}

	cols := make([]string, 0, len(studentColumns))
	for _, col := range studentColumns {
		cols = append(cols, "s."+col)
	}
	query := fmt.Sprintf(`SELECT %s, COALESCE(c.name, '') AS class_name, COALESCE(sec.name, '') AS section_name
FROM students s
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN sections sec ON sec.id = s.section_id
WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		strings.Join(cols, ", "), where, sortExpr, dir, req.Length, req.Start)
	if err := r.db.SelectContext(ctx, &result.Data, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return result, nil
}

// FindRowByID returns the joined projection for one student. Soft-deleted
// rows stay reachable here so historical documents can still be produced.
func (r *StudentRepository) FindRowByID(ctx context.Context, scope models.Scope, id string) (*models.StudentListRow, error) {
	cols := make([]string, 0, len(studentColumns))
	for _, col := range studentColumns {
		cols = append(cols, "s."+col)
	}
	query := fmt.Sprintf(`SELECT %s, COALESCE(c.name, '') AS class_name, COALESCE(sec.name, '') AS section_name
FROM students s
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN sections sec ON sec.id = s.section_id
WHERE s.id = $1 AND s.tenant_id = $2`, strings.Join(cols, ", "))
	var row models.StudentListRow
	if err := r.db.GetContext(ctx, &row, query, id, scope.TenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find student row: %w", err)
	}
	return &row, nil
}

// UpdatePhotoPath records the stored photo location for a student.
func (r *StudentRepository) UpdatePhotoPath(ctx context.Context, scope models.Scope, studentID, photoPath string) error {
	const query = `UPDATE students SET photo_path = $1, modified_by = $2, modified_at = $3
WHERE id = $4 AND tenant_id = $5 AND NOT is_deleted`
	res, err := r.db.ExecContext(ctx, query, photoPath, scope.UserID, time.Now().UTC(), studentID, scope.TenantID)
	if err != nil {
		return fmt.Errorf("update student photo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student photo: rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}
