package rbac

import "github.com/orgdesk/orgdesk/internal/model"

// ProfileResolver derives scope profiles from role names and the user's own
// organizational identifiers.
type ProfileResolver struct {
	names *RoleNameTable
}

// NewProfileResolver creates a ProfileResolver. A nil table falls back to
// the shipped defaults.
func NewProfileResolver(names *RoleNameTable) *ProfileResolver {
	if names == nil {
		names = DefaultRoleNameTable()
	}
	return &ProfileResolver{names: names}
}

// Profile classifies the context as TI, national commission, locality
// admin, specialty admin, or plain member, and computes the effective
// scoping identifiers.
//
// LocalityID is absent for TI and national-commission holders: they see
// everything. A specialty admin's group identifiers include both the
// specialty and the elo role, because some resources associate
// responsibility by elo role rather than specialty.
func (pr *ProfileResolver) Profile(ac *model.AccessContext) model.AccessProfile {
	var p model.AccessProfile

	for _, role := range ac.Roles {
		switch pr.names.Category(role.Name) {
		case CategoryIT:
			p.TI = true
		case CategoryNationalCommission:
			p.NationalCommission = true
		case CategoryLocalityAdmin:
			p.LocalityAdmin = true
		case CategorySpecialtyAdmin:
			p.SpecialtyAdmin = true
		}
	}

	if !p.TI && !p.NationalCommission {
		p.LocalityID = ac.LocalityID
	}
	if p.SpecialtyAdmin {
		p.GroupSpecialtyID = ac.SpecialtyID
		p.GroupEloRoleID = ac.EloRoleID
	}
	p.IsAdminLike = p.TI || p.NationalCommission || p.LocalityAdmin || p.SpecialtyAdmin

	return p
}
