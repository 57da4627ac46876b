package model

// Scope is the organizational breadth a permission applies to.
type Scope string

const (
	ScopeNational          Scope = "national"
	ScopeLocality          Scope = "locality"
	ScopeSpecialty         Scope = "specialty"
	ScopeLocalitySpecialty Scope = "locality_specialty"
	ScopeOwn               Scope = "own"
)

// Wildcard is the token that matches any resource or action in a permission.
const Wildcard = "*"

// ValidScope reports whether s is one of the five known scopes.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeNational, ScopeLocality, ScopeSpecialty, ScopeLocalitySpecialty, ScopeOwn:
		return true
	}
	return false
}

// Permission is a single grantable (resource, action, scope) triple from the
// catalog. Resource and Action may be the wildcard token "*". The triple is
// unique across the catalog.
type Permission struct {
	ID          int64  `json:"id" db:"id"`
	Resource    string `json:"resource" db:"resource"`
	Action      string `json:"action" db:"action"`
	Scope       Scope  `json:"scope" db:"scope"`
	Description string `json:"description" db:"description"`
}

// Key returns the deduplication key for a permission triple.
func (p Permission) Key() string {
	return p.Resource + "\x00" + p.Action + "\x00" + string(p.Scope)
}
