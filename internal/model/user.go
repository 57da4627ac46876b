package model

import "time"

// User is an operator account. LocalityID, SpecialtyID, and EloRoleID anchor
// the user in the organizational structure and drive scope derivation.
type User struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	LocalityID       *string    `json:"locality_id" db:"locality_id"`
	SpecialtyID      *string    `json:"specialty_id" db:"specialty_id"`
	EloRoleID        *string    `json:"elo_role_id" db:"elo_role_id"`
	ExecutiveHidePII bool       `json:"executive_hide_pii" db:"executive_hide_pii"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// ModuleOverride is a per-user, per-resource switch consulted only on the
// wildcard path, and only to deny. An enabled=true row is stored but grants
// nothing beyond the regular permission check.
type ModuleOverride struct {
	UserID   string `json:"user_id" db:"user_id"`
	Resource string `json:"resource" db:"resource"`
	Enabled  bool   `json:"enabled" db:"enabled"`
}
