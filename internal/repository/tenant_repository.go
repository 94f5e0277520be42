package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

// TenantRepository reads school records. Tenants are provisioned out of band;
// the API only ever reads them.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository constructs the repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, code, name, place, address, phone, email, logo_path, active, created_at`

// FindByID returns a tenant by identifier.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 LIMIT 1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return &tenant, nil
}
