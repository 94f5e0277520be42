package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/veloxschool/sims-api/internal/models"
)

// LookupRepository serves the id/name dropdown lists consumed by forms.
// These are pure reads; no caching, re-queried per request like the rest of
// the master data.
type LookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository builds a lookup repository.
func NewLookupRepository(db *sqlx.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// Classes returns the active classes for the scope.
func (r *LookupRepository) Classes(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	return r.list(ctx, "classes", scope, "")
}

// Sections returns the active sections, optionally limited to one class.
func (r *LookupRepository) Sections(ctx context.Context, scope models.Scope, classID string) ([]models.LookupItem, error) {
	if classID == "" {
		return r.list(ctx, "sections", scope, "")
	}
	const query = `SELECT id, name FROM sections
WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted AND is_active AND class_id = $3
ORDER BY sort_order, name`
	items := []models.LookupItem{}
	if err := r.db.SelectContext(ctx, &items, query, scope.TenantID, scope.SessionID, classID); err != nil {
		return nil, fmt.Errorf("lookup sections: %w", err)
	}
	return items, nil
}

// Subjects returns the active subjects for the scope.
func (r *LookupRepository) Subjects(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	return r.list(ctx, "subjects", scope, "")
}

// Exams returns the exam schedule masters for the scope.
func (r *LookupRepository) Exams(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	return r.list(ctx, "exams", scope, "")
}

// FeeCategories returns the fee category masters for the scope.
func (r *LookupRepository) FeeCategories(ctx context.Context, scope models.Scope) ([]models.LookupItem, error) {
	return r.list(ctx, "fee_categories", scope, "")
}

func (r *LookupRepository) list(ctx context.Context, table string, scope models.Scope, extraPredicate string) ([]models.LookupItem, error) {
	query := fmt.Sprintf(`SELECT id, name FROM %s
WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted AND is_active%s
ORDER BY sort_order, name`, table, extraPredicate)
	items := []models.LookupItem{}
	if err := r.db.SelectContext(ctx, &items, query, scope.TenantID, scope.SessionID); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", table, err)
	}
	return items, nil
}
