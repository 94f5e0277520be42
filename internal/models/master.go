package models

import "time"

// TenantRecord is the shape shared by every tenant-scoped master row. Master
// entities embed it and add their name fields.
type TenantRecord struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	SessionID   string     `db:"session_id" json:"session_id,omitempty"`
	SessionYear int        `db:"session_year" json:"session_year,omitempty"`
	SortOrder   int        `db:"sort_order" json:"sort_order"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	IsDeleted   bool       `db:"is_deleted" json:"-"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ModifiedBy  *string    `db:"modified_by" json:"modified_by,omitempty"`
	ModifiedAt  *time.Time `db:"modified_at" json:"modified_at,omitempty"`
}

// RecordID returns the primary key.
func (r *TenantRecord) RecordID() string { return r.ID }

// SetRecordID assigns the primary key, used when a new identifier is minted.
func (r *TenantRecord) SetRecordID(id string) { r.ID = id }

// ApplySortOrder records the position assigned by the database on insert.
func (r *TenantRecord) ApplySortOrder(n int) { r.SortOrder = n }

// StampCreate fills tenant, session and creator fields for an insert.
func (r *TenantRecord) StampCreate(scope Scope, now time.Time) {
	r.TenantID = scope.TenantID
	r.SessionID = scope.SessionID
	r.SessionYear = scope.SessionYear
	r.CreatedBy = scope.UserID
	r.CreatedAt = now
	r.IsDeleted = false
}

// StampModify fills modifier fields for an update or soft delete.
func (r *TenantRecord) StampModify(scope Scope, now time.Time) {
	userID := scope.UserID
	r.ModifiedBy = &userID
	r.ModifiedAt = &now
}

// Batch is an academic batch within a session (e.g. "Morning").
type Batch struct {
	TenantRecord
	BatchName string `db:"batch_name" json:"batch_name" validate:"required,max=100"`
}

// MasterName returns the tenant+session unique name.
func (b *Batch) MasterName() string { return b.BatchName }

// FeeHead is a fee line item master (e.g. "Tuition", "Library").
type FeeHead struct {
	TenantRecord
	HeadName   string `db:"head_name" json:"head_name" validate:"required,max=100"`
	CategoryID string `db:"category_id" json:"category_id,omitempty"`
}

func (f *FeeHead) MasterName() string { return f.HeadName }

// EmployeeType is an HR master row (e.g. "Teaching", "Clerical").
type EmployeeType struct {
	TenantRecord
	TypeName string `db:"type_name" json:"type_name" validate:"required,max=100"`
}

func (e *EmployeeType) MasterName() string { return e.TypeName }

// Shift is an HR working-shift master.
type Shift struct {
	TenantRecord
	ShiftName string `db:"shift_name" json:"shift_name" validate:"required,max=100"`
	StartTime string `db:"start_time" json:"start_time,omitempty"`
	EndTime   string `db:"end_time" json:"end_time,omitempty"`
}

func (s *Shift) MasterName() string { return s.ShiftName }

// TransportVehicle is a transport fleet row.
type TransportVehicle struct {
	TenantRecord
	VehicleNumber string `db:"vehicle_number" json:"vehicle_number" validate:"required,max=50"`
	DriverName    string `db:"driver_name" json:"driver_name,omitempty"`
	DriverPhone   string `db:"driver_phone" json:"driver_phone,omitempty"`
	Capacity      int    `db:"capacity" json:"capacity,omitempty"`
}

func (v *TransportVehicle) MasterName() string { return v.VehicleNumber }

// Notice is an announcement shown on dashboards. Titles are not unique.
type Notice struct {
	TenantRecord
	Title       string    `db:"title" json:"title" validate:"required,max=200"`
	Body        string    `db:"body" json:"body" validate:"required"`
	PublishDate time.Time `db:"publish_date" json:"publish_date"`
}

func (n *Notice) MasterName() string { return "" }

// Customer is an external billing party (transport contracts, hall rentals).
type Customer struct {
	TenantRecord
	CustomerName string `db:"customer_name" json:"customer_name" validate:"required,max=150"`
	Phone        string `db:"phone" json:"phone,omitempty"`
	Email        string `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	Address      string `db:"address" json:"address,omitempty"`
}

func (c *Customer) MasterName() string { return c.CustomerName }

// SubjectMapping binds a subject to a class/section. The legacy system hard
// deletes these rows, the one exception to the soft-delete rule.
type SubjectMapping struct {
	TenantRecord
	ClassID   string `db:"class_id" json:"class_id" validate:"required"`
	SectionID string `db:"section_id" json:"section_id" validate:"required"`
	SubjectID string `db:"subject_id" json:"subject_id" validate:"required"`
}

func (m *SubjectMapping) MasterName() string { return "" }
