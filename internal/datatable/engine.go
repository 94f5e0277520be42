package datatable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

const uniqueViolation = pq.ErrorCode("23505")

// Engine implements the tenant-scoped paginated search protocol and the
// common CRUD shape for one entity. One engine instance replaces one of the
// legacy per-entity controller recipes.
type Engine[T any, PT Recordable[T]] struct {
	db   *sqlx.DB
	desc Descriptor
	now  func() time.Time
}

// NewEngine builds an engine for the described entity.
func NewEngine[T any, PT Recordable[T]](db *sqlx.DB, desc Descriptor) *Engine[T, PT] {
	return &Engine[T, PT]{db: db, desc: desc, now: time.Now}
}

// List translates a DataTables request into a scoped, sorted, windowed page.
// recordsTotal counts all visible rows in scope; recordsFiltered applies the
// search predicate on top. A zero length yields an empty window, not all rows.
func (e *Engine[T, PT]) List(ctx context.Context, scope models.Scope, req models.PageRequest) (*models.PageResult[T], error) {
	req.Normalize()

	where, args := e.scopePredicate(scope)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", e.desc.Table, where)
	if err := e.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count %s: %w", e.desc.Table, err)
	}

	filtered := total
	search := strings.TrimSpace(req.SearchValue)
	if search != "" && len(e.desc.SearchColumns) > 0 {
		idx := len(args) + 1
		likes := make([]string, 0, len(e.desc.SearchColumns))
		for _, col := range e.desc.SearchColumns {
			likes = append(likes, fmt.Sprintf("LOWER(%s) LIKE $%d", col, idx))
		}
		where += " AND (" + strings.Join(likes, " OR ") + ")"
		args = append(args, "%"+strings.ToLower(search)+"%")

		filteredQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", e.desc.Table, where)
		if err := e.db.GetContext(ctx, &filtered, filteredQuery, args...); err != nil {
			return nil, fmt.Errorf("count filtered %s: %w", e.desc.Table, err)
		}
	}

	result := &models.PageResult[T]{
		Draw:            req.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            []T{},
	}
	if req.Length == 0 {
		return result, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		strings.Join(e.desc.SelectColumns, ", "), e.desc.Table, where, e.orderBy(req), req.Length, req.Start)
	if err := e.db.SelectContext(ctx, &result.Data, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", e.desc.Table, err)
	}
	return result, nil
}

// FindByID returns the row by primary key within the tenant. Soft-deleted rows
// stay retrievable here; only list queries exclude them.
func (e *Engine[T, PT]) FindByID(ctx context.Context, scope models.Scope, id string) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 AND tenant_id = $2",
		strings.Join(e.desc.SelectColumns, ", "), e.desc.Table)
	var rec T
	if err := e.db.GetContext(ctx, &rec, query, id, scope.TenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find %s by id: %w", e.desc.Table, err)
	}
	return &rec, nil
}

// ExistsByName reports whether another visible row in scope already uses the
// name, case-insensitively. excludeID skips the row being updated.
func (e *Engine[T, PT]) ExistsByName(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error) {
	if e.desc.NameColumn == "" {
		return false, nil
	}
	where, args := e.scopePredicate(scope)
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s AND LOWER(%s) = LOWER($%d)",
		e.desc.Table, where, e.desc.NameColumn, len(args)+1)
	args = append(args, strings.TrimSpace(name))
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}

	var exists int
	if err := e.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check %s name: %w", e.desc.Table, err)
	}
	return true, nil
}

// NextSortOrder returns MAX(sort_order)+1 within scope, 1 for an empty scope.
// Insert assigns the value atomically; this exists for the grid's preview call.
func (e *Engine[T, PT]) NextSortOrder(ctx context.Context, scope models.Scope) (int, error) {
	where, args := e.scopePredicate(scope)
	query := fmt.Sprintf("SELECT COALESCE(MAX(sort_order), 0) + 1 FROM %s WHERE %s", e.desc.Table, where)
	var next int
	if err := e.db.GetContext(ctx, &next, query, args...); err != nil {
		return 0, fmt.Errorf("next sort order %s: %w", e.desc.Table, err)
	}
	return next, nil
}

// Insert persists a new row. The identifier is minted client-side, tenant and
// creator fields are stamped from scope, and sort_order is assigned inside the
// INSERT itself so concurrent inserts cannot race on a read value. A unique
// violation from the composite name index maps to ErrDuplicate.
func (e *Engine[T, PT]) Insert(ctx context.Context, scope models.Scope, rec PT) error {
	if rec.RecordID() == "" {
		rec.SetRecordID(uuid.NewString())
	}
	rec.StampCreate(scope, e.now().UTC())

	if e.desc.NameColumn != "" {
		exists, err := e.ExistsByName(ctx, scope, rec.MasterName(), "")
		if err != nil {
			return err
		}
		if exists {
			return appErrors.ErrDuplicate
		}
	}

	columns := []string{"id", "tenant_id"}
	values := []string{":id", ":tenant_id"}
	if e.desc.SessionScoped {
		columns = append(columns, "session_id", "session_year")
		values = append(values, ":session_id", ":session_year")
	}

	sortSub := fmt.Sprintf("(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM %s WHERE tenant_id = :tenant_id AND NOT is_deleted", e.desc.Table)
	if e.desc.SessionScoped {
		sortSub += " AND session_id = :session_id"
	}
	sortSub += ")"

	columns = append(columns, "sort_order", "is_active", "is_deleted", "created_by", "created_at")
	values = append(values, sortSub, ":is_active", "FALSE", ":created_by", ":created_at")
	for _, col := range e.desc.InsertColumns {
		columns = append(columns, col)
		values = append(values, ":"+col)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s RETURNING sort_order",
		e.desc.Table, strings.Join(columns, ", "), strings.Join(values, ", "))

	rows, err := e.db.NamedQueryContext(ctx, query, rec)
	if err != nil {
		return e.mapWriteError(err, "insert")
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		var assigned int
		if err := rows.Scan(&assigned); err != nil {
			return fmt.Errorf("insert %s: scan sort_order: %w", e.desc.Table, err)
		}
		rec.ApplySortOrder(assigned)
	}
	return rows.Err()
}

// Update rewrites the entity columns and re-stamps the modifier. The WHERE
// clause re-asserts tenant ownership, so a cross-tenant id affects zero rows
// and surfaces as not found.
func (e *Engine[T, PT]) Update(ctx context.Context, scope models.Scope, rec PT) error {
	rec.StampModify(scope, e.now().UTC())

	if e.desc.NameColumn != "" {
		exists, err := e.ExistsByName(ctx, scope, rec.MasterName(), rec.RecordID())
		if err != nil {
			return err
		}
		if exists {
			return appErrors.ErrDuplicate
		}
	}

	assignments := make([]string, 0, len(e.desc.UpdateColumns)+3)
	for _, col := range e.desc.UpdateColumns {
		assignments = append(assignments, fmt.Sprintf("%s = :%s", col, col))
	}
	assignments = append(assignments, "is_active = :is_active", "modified_by = :modified_by", "modified_at = :modified_at")

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND tenant_id = :tenant_id AND NOT is_deleted",
		e.desc.Table, strings.Join(assignments, ", "))

	res, err := e.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		return e.mapWriteError(err, "update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", e.desc.Table, err)
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// Delete removes the row: a soft-delete flag flip with modifier stamp, or a
// hard DELETE when the descriptor says so. Always tenant-scoped.
func (e *Engine[T, PT]) Delete(ctx context.Context, scope models.Scope, id string) error {
	var (
		res sql.Result
		err error
	)
	if e.desc.HardDelete {
		query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND tenant_id = $2", e.desc.Table)
		res, err = e.db.ExecContext(ctx, query, id, scope.TenantID)
	} else {
		query := fmt.Sprintf("UPDATE %s SET is_deleted = TRUE, modified_by = $1, modified_at = $2 WHERE id = $3 AND tenant_id = $4 AND NOT is_deleted", e.desc.Table)
		res, err = e.db.ExecContext(ctx, query, scope.UserID, e.now().UTC(), id, scope.TenantID)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.desc.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: rows affected: %w", e.desc.Table, err)
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// Lookup returns the active rows as id/name pairs ordered for dropdowns.
func (e *Engine[T, PT]) Lookup(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	if e.desc.NameColumn == "" {
		return nil, fmt.Errorf("lookup %s: no name column", e.desc.Table)
	}
	where, args := e.scopePredicate(scope)
	query := fmt.Sprintf("SELECT id, %s AS name FROM %s WHERE %s AND is_active ORDER BY sort_order, %s",
		e.desc.NameColumn, e.desc.Table, where, e.desc.NameColumn)
	items := []models.LookupItem{}
	if err := e.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", e.desc.Table, err)
	}
	return items, nil
}

func (e *Engine[T, PT]) scopePredicate(scope models.Scope) (string, []interface{}) {
	where := "tenant_id = $1 AND NOT is_deleted"
	args := []interface{}{scope.TenantID}
	if e.desc.SessionScoped {
		where += " AND session_id = $2 AND session_year = $3"
		args = append(args, scope.SessionID, scope.SessionYear)
	}
	return where, args
}

func (e *Engine[T, PT]) orderBy(req models.PageRequest) string {
	column, ok := e.desc.SortColumns[req.SortColumn]
	if !ok || column == "" {
		return e.desc.defaultSort()
	}
	dir := strings.ToUpper(strings.TrimSpace(req.SortDirection))
	if dir != "ASC" && dir != "DESC" {
		dir = "ASC"
	}
	return column + " " + dir
}

func (e *Engine[T, PT]) mapWriteError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return appErrors.ErrDuplicate
	}
	return fmt.Errorf("%s %s: %w", op, e.desc.Table, err)
}
