package model

// RoleGrant is a role as held by a user inside an AccessContext.
type RoleGrant struct {
	ID                  int64               `json:"id"`
	Name                string              `json:"name"`
	Wildcard            bool                `json:"wildcard"`
	Flags               RoleFlags           `json:"flags"`
	ConstraintsTemplate ConstraintsTemplate `json:"constraints_template"`
	Permissions         []Permission        `json:"permissions"`
}

// AccessContext is the resolved view of a user's access, built fresh per
// operation and never persisted. Permissions is the deduplicated union of
// all held roles' permission sets; Overrides are applied by the guard at
// decision time, not pre-merged.
type AccessContext struct {
	UserID           string           `json:"user_id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	LocalityID       *string          `json:"locality_id"`
	SpecialtyID      *string          `json:"specialty_id"`
	EloRoleID        *string          `json:"elo_role_id"`
	ExecutiveHidePII bool             `json:"executive_hide_pii"`
	Permissions      []Permission     `json:"permissions"`
	Overrides        []ModuleOverride `json:"module_access_overrides"`
	Roles            []RoleGrant      `json:"roles"`
}

// HasWildcardRole reports whether any held role carries the wildcard flag.
func (ac *AccessContext) HasWildcardRole() bool {
	for _, r := range ac.Roles {
		if r.Wildcard {
			return true
		}
	}
	return false
}

// PrimaryRole returns the user's primary role (assignment position 0), or
// nil when the user holds no roles. Roles are ordered by assignment
// position when the context is resolved.
func (ac *AccessContext) PrimaryRole() *RoleGrant {
	if len(ac.Roles) == 0 {
		return nil
	}
	return &ac.Roles[0]
}

// AccessProfile is the derived scope classification driving row filters and
// mutation assertions. LocalityID is the effective scoping locality: nil for
// TI and national-commission holders, the user's own locality otherwise.
type AccessProfile struct {
	TI                 bool    `json:"ti"`
	NationalCommission bool    `json:"national_commission"`
	LocalityAdmin      bool    `json:"locality_admin"`
	SpecialtyAdmin     bool    `json:"specialty_admin"`
	LocalityID         *string `json:"locality_id,omitempty"`
	GroupSpecialtyID   *string `json:"group_specialty_id,omitempty"`
	GroupEloRoleID     *string `json:"group_elo_role_id,omitempty"`
	IsAdminLike        bool    `json:"is_admin_like"`
}

// Unrestricted reports whether the profile carries no locality constraint
// at all (TI and national commission see everything).
func (p AccessProfile) Unrestricted() bool {
	return p.TI || p.NationalCommission
}
