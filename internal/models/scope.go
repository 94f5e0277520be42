package models

// Scope carries the tenant context resolved from the authenticated session.
// It is passed explicitly into every service and repository call; nothing in the
// request path reads ambient session state.
type Scope struct {
	TenantID    string
	TenantCode  string
	SessionID   string
	SessionYear int
	UserID      string
	Role        UserRole
}

// Valid reports whether the scope identifies a usable tenant. A tenant code of
// "0" marks a half-provisioned login in the legacy data and is treated as absent.
func (s Scope) Valid() bool {
	if s.TenantID == "" {
		return false
	}
	if s.TenantCode == "" || s.TenantCode == "0" {
		return false
	}
	return true
}
