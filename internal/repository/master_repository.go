package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/veloxschool/sims-api/internal/datatable"
	"github.com/veloxschool/sims-api/internal/models"
)

// recordColumns are the columns every tenant-scoped master table shares.
var recordColumns = []string{
	"id", "tenant_id", "session_id", "session_year", "sort_order",
	"is_active", "is_deleted", "created_by", "created_at", "modified_by", "modified_at",
}

func withRecordColumns(extra ...string) []string {
	return append(append([]string{}, recordColumns...), extra...)
}

// BatchRepository persists academic batches.
type BatchRepository struct {
	*datatable.Engine[models.Batch, *models.Batch]
}

// NewBatchRepository builds the batch engine.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{datatable.NewEngine[models.Batch, *models.Batch](db, datatable.Descriptor{
		Table:         "academic_batches",
		SelectColumns: withRecordColumns("batch_name"),
		NameColumn:    "batch_name",
		SearchColumns: []string{"batch_name"},
		SortColumns:   map[string]string{"name": "batch_name", "sortOrder": "sort_order", "createdAt": "created_at"},
		SessionScoped: true,
		InsertColumns: []string{"batch_name"},
		UpdateColumns: []string{"batch_name"},
	})}
}

// FeeHeadRepository persists fee head masters.
type FeeHeadRepository struct {
	*datatable.Engine[models.FeeHead, *models.FeeHead]
}

// NewFeeHeadRepository builds the fee head engine.
func NewFeeHeadRepository(db *sqlx.DB) *FeeHeadRepository {
	return &FeeHeadRepository{datatable.NewEngine[models.FeeHead, *models.FeeHead](db, datatable.Descriptor{
		Table:         "fee_heads",
		SelectColumns: withRecordColumns("head_name", "category_id"),
		NameColumn:    "head_name",
		SearchColumns: []string{"head_name"},
		SortColumns:   map[string]string{"name": "head_name", "sortOrder": "sort_order", "createdAt": "created_at"},
		SessionScoped: true,
		InsertColumns: []string{"head_name", "category_id"},
		UpdateColumns: []string{"head_name", "category_id"},
	})}
}

// EmployeeTypeRepository persists HR employee types.
type EmployeeTypeRepository struct {
	*datatable.Engine[models.EmployeeType, *models.EmployeeType]
}

// NewEmployeeTypeRepository builds the employee type engine.
func NewEmployeeTypeRepository(db *sqlx.DB) *EmployeeTypeRepository {
	return &EmployeeTypeRepository{datatable.NewEngine[models.EmployeeType, *models.EmployeeType](db, datatable.Descriptor{
		Table:         "employee_types",
		SelectColumns: withRecordColumns("type_name"),
		NameColumn:    "type_name",
		SearchColumns: []string{"type_name"},
		SortColumns:   map[string]string{"name": "type_name", "sortOrder": "sort_order"},
		InsertColumns: []string{"type_name"},
		UpdateColumns: []string{"type_name"},
	})}
}

// ShiftRepository persists HR shifts.
type ShiftRepository struct {
	*datatable.Engine[models.Shift, *models.Shift]
}

// NewShiftRepository builds the shift engine.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{datatable.NewEngine[models.Shift, *models.Shift](db, datatable.Descriptor{
		Table:         "shifts",
		SelectColumns: withRecordColumns("shift_name", "start_time", "end_time"),
		NameColumn:    "shift_name",
		SearchColumns: []string{"shift_name"},
		SortColumns:   map[string]string{"name": "shift_name", "sortOrder": "sort_order", "startTime": "start_time"},
		InsertColumns: []string{"shift_name", "start_time", "end_time"},
		UpdateColumns: []string{"shift_name", "start_time", "end_time"},
	})}
}

// VehicleRepository persists transport vehicles.
type VehicleRepository struct {
	*datatable.Engine[models.TransportVehicle, *models.TransportVehicle]
}

// NewVehicleRepository builds the vehicle engine.
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{datatable.NewEngine[models.TransportVehicle, *models.TransportVehicle](db, datatable.Descriptor{
		Table:         "transport_vehicles",
		SelectColumns: withRecordColumns("vehicle_number", "driver_name", "driver_phone", "capacity"),
		NameColumn:    "vehicle_number",
		SearchColumns: []string{"vehicle_number", "driver_name"},
		SortColumns:   map[string]string{"number": "vehicle_number", "driver": "driver_name", "sortOrder": "sort_order"},
		InsertColumns: []string{"vehicle_number", "driver_name", "driver_phone", "capacity"},
		UpdateColumns: []string{"vehicle_number", "driver_name", "driver_phone", "capacity"},
	})}
}

// NoticeRepository persists notices. Titles are not unique so duplicate
// checking is disabled.
type NoticeRepository struct {
	*datatable.Engine[models.Notice, *models.Notice]
}

// NewNoticeRepository builds the notice engine.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{datatable.NewEngine[models.Notice, *models.Notice](db, datatable.Descriptor{
		Table:         "notices",
		SelectColumns: withRecordColumns("title", "body", "publish_date"),
		SearchColumns: []string{"title", "body"},
		SortColumns:   map[string]string{"title": "title", "publishDate": "publish_date", "sortOrder": "sort_order"},
		DefaultSort:   "publish_date DESC",
		SessionScoped: true,
		InsertColumns: []string{"title", "body", "publish_date"},
		UpdateColumns: []string{"title", "body", "publish_date"},
	})}
}

// CustomerRepository persists external billing customers.
type CustomerRepository struct {
	*datatable.Engine[models.Customer, *models.Customer]
}

// NewCustomerRepository builds the customer engine.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{datatable.NewEngine[models.Customer, *models.Customer](db, datatable.Descriptor{
		Table:         "customers",
		SelectColumns: withRecordColumns("customer_name", "phone", "email", "address"),
		NameColumn:    "customer_name",
		SearchColumns: []string{"customer_name", "phone", "email"},
		SortColumns:   map[string]string{"name": "customer_name", "sortOrder": "sort_order", "createdAt": "created_at"},
		InsertColumns: []string{"customer_name", "phone", "email", "address"},
		UpdateColumns: []string{"customer_name", "phone", "email", "address"},
	})}
}

// SubjectMappingRepository persists class/section/subject bindings. This is
// the one hard-deleting table in the system.
type SubjectMappingRepository struct {
	*datatable.Engine[models.SubjectMapping, *models.SubjectMapping]
	db *sqlx.DB
}

// NewSubjectMappingRepository builds the mapping engine.
func NewSubjectMappingRepository(db *sqlx.DB) *SubjectMappingRepository {
	return &SubjectMappingRepository{
		Engine: datatable.NewEngine[models.SubjectMapping, *models.SubjectMapping](db, datatable.Descriptor{
			Table:         "subject_mappings",
			SelectColumns: withRecordColumns("class_id", "section_id", "subject_id"),
			SearchColumns: nil,
			SortColumns:   map[string]string{"sortOrder": "sort_order", "createdAt": "created_at"},
			SessionScoped: true,
			HardDelete:    true,
			InsertColumns: []string{"class_id", "section_id", "subject_id"},
			UpdateColumns: []string{"class_id", "section_id", "subject_id"},
		}),
		db: db,
	}
}

// ListByClass returns the mappings for a class within the scope.
func (r *SubjectMappingRepository) ListByClass(ctx context.Context, scope models.Scope, classID string) ([]models.SubjectMapping, error) {
	const query = `SELECT id, tenant_id, session_id, session_year, sort_order, is_active, is_deleted, created_by, created_at, modified_by, modified_at, class_id, section_id, subject_id
FROM subject_mappings
WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted AND class_id = $3
ORDER BY sort_order`
	mappings := []models.SubjectMapping{}
	if err := r.db.SelectContext(ctx, &mappings, query, scope.TenantID, scope.SessionID, classID); err != nil {
		return nil, fmt.Errorf("list subject mappings: %w", err)
	}
	return mappings, nil
}

// ExistsMapping reports whether the class/section/subject triple is already
// mapped within the scope.
func (r *SubjectMappingRepository) ExistsMapping(ctx context.Context, scope models.Scope, classID, sectionID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM subject_mappings
WHERE tenant_id = $1 AND session_id = $2 AND NOT is_deleted
AND class_id = $3 AND section_id = $4 AND subject_id = $5 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, scope.TenantID, scope.SessionID, classID, sectionID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check subject mapping: %w", err)
	}
	return true, nil
}
