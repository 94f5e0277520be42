package models

// PageRequest is the DataTables server-side protocol request. Grids submit it
// form-encoded; API clients may send JSON.
type PageRequest struct {
	Draw          int    `form:"draw" json:"draw"`
	Start         int    `form:"start" json:"start"`
	Length        int    `form:"length" json:"length"`
	SortColumn    string `form:"sortColumn" json:"sortColumn"`
	SortDirection string `form:"sortDirection" json:"sortDirection"`
	SearchValue   string `form:"searchValue" json:"searchValue"`
}

// Normalize clamps paging values to sane bounds. A zero length is kept as-is:
// the protocol defines it as an empty window, not "all rows".
func (r *PageRequest) Normalize() {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.Length < 0 {
		r.Length = 0
	}
}

// PageResult is the DataTables response for a windowed query.
type PageResult[T any] struct {
	Draw            int `json:"draw"`
	RecordsTotal    int `json:"recordsTotal"`
	RecordsFiltered int `json:"recordsFiltered"`
	Data            []T `json:"data"`
}

// LookupItem is a dropdown entry. An empty ID is the "no filter" sentinel
// prepended when the caller asks for the ALL entry.
type LookupItem struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Pagination contains page metadata for non-grid list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
