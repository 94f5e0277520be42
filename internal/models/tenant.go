package models

import "time"

// Tenant is one school sharing the installation. Code is the short
// human-facing identifier stamped on documents and cache keys.
type Tenant struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Place     string    `db:"place" json:"place"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	LogoPath  string    `db:"logo_path" json:"logo_path"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
