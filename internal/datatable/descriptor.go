package datatable

import (
	"time"

	"github.com/veloxschool/sims-api/internal/models"
)

// Record is the contract every engine-managed entity satisfies through the
// embedded models.TenantRecord plus its own MasterName.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	ApplySortOrder(n int)
	StampCreate(scope models.Scope, now time.Time)
	StampModify(scope models.Scope, now time.Time)
	MasterName() string
}

// Recordable ties the pointer type of an entity to the Record contract.
type Recordable[T any] interface {
	*T
	Record
}

// Descriptor parameterizes the engine for one entity: table, columns, search
// and sort surface, scoping and delete semantics. This is the single place an
// entity's grid behaviour is declared; handlers and services stay generic.
type Descriptor struct {
	// Table is the backing relation.
	Table string
	// SelectColumns lists every readable column in declaration order.
	SelectColumns []string
	// NameColumn is the tenant+session unique name column. Empty disables
	// duplicate checking for entities without a unique name.
	NameColumn string
	// SearchColumns take part in the free-text LIKE disjunction.
	SearchColumns []string
	// SortColumns maps request sort tokens to column expressions. Tokens not
	// present here fall back to DefaultSort; raw client input never reaches
	// the query text.
	SortColumns map[string]string
	// DefaultSort is the ORDER BY used when no valid sort token is supplied.
	DefaultSort string
	// SessionScoped adds session_id/session_year predicates and stamps.
	SessionScoped bool
	// HardDelete switches Delete from the soft-delete flag flip to a real
	// DELETE. Only subject mappings use this.
	HardDelete bool
	// InsertColumns are the entity columns beyond the common record shape.
	InsertColumns []string
	// UpdateColumns are the entity columns rewritten on edit.
	UpdateColumns []string
}

func (d Descriptor) defaultSort() string {
	if d.DefaultSort != "" {
		return d.DefaultSort
	}
	return "sort_order ASC"
}
