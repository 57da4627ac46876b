package rbac

import (
	"strings"

	"github.com/orgdesk/orgdesk/internal/model"
)

// Condition is a SQL row-filter fragment with its bound arguments. An empty
// condition means "no filter".
type Condition struct {
	Clause string
	Args   []interface{}
}

// Empty reports whether the condition filters nothing.
func (c Condition) Empty() bool {
	return c.Clause == ""
}

// ResourceScoping declares how one resource participates in scope
// filtering. Resource modules supply only these two facts; the predicate
// logic lives here once, so access rules cannot drift between modules.
type ResourceScoping struct {
	// HasSpecialty marks resources with a specialty_id column. Resources
	// without one are filtered on locality alone.
	HasSpecialty bool

	// GroupsByEloRole enables the elo-role alternative branch for
	// resources that associate responsibility by elo role rather than
	// specialty. The table must have an elo_role_id column.
	GroupsByEloRole bool

	// ResponsibleClause is a SQL predicate with exactly one placeholder
	// bound to the viewer's user id, satisfied by records the viewer is an
	// explicit responsible party of. Empty means the resource does not
	// track individual responsibility.
	ResponsibleClause string
}

// ScopeFilter derives the read-side row filter for list and search
// operations.
//
// TI and national commission get the unconstrained predicate. A locality
// admin sees their whole locality. A specialty admin sees their locality
// narrowed to their specialty (or records with no specialty, or matching
// elo role where the resource groups by it). A plain member sees records in
// their own locality/specialty reach, plus any record they are explicitly
// responsible for.
func ScopeFilter(p model.AccessProfile, viewer *model.AccessContext, sc ResourceScoping) Condition {
	if p.Unrestricted() {
		return Condition{}
	}

	if p.LocalityAdmin {
		return eqOrNull("locality_id", p.LocalityID)
	}

	if p.SpecialtyAdmin {
		cond := eqOrNull("locality_id", p.LocalityID)
		if sc.HasSpecialty {
			cond = and(cond, groupBranch(p.GroupSpecialtyID, p.GroupEloRoleID, sc.GroupsByEloRole))
		}
		return cond
	}

	member := eqOrNull("locality_id", viewer.LocalityID)
	if sc.HasSpecialty {
		member = and(member, groupBranch(viewer.SpecialtyID, viewer.EloRoleID, sc.GroupsByEloRole))
	}
	if sc.ResponsibleClause != "" {
		return or(member, Condition{Clause: sc.ResponsibleClause, Args: []interface{}{viewer.UserID}})
	}
	return member
}

// AssertMutationAllowed rejects writes whose target locality or specialty
// disagrees with the profile's constraints. TI and national commission are
// never constrained.
func AssertMutationAllowed(p model.AccessProfile, targetLocality, targetSpecialty *string) error {
	if p.Unrestricted() {
		return nil
	}
	if p.LocalityID != nil {
		if targetLocality == nil || *targetLocality != *p.LocalityID {
			return ErrForbidden
		}
	}
	if p.SpecialtyAdmin && p.GroupSpecialtyID != nil {
		if targetSpecialty != nil && *targetSpecialty != *p.GroupSpecialtyID {
			return ErrForbidden
		}
	}
	return nil
}

// AssertOperateAllowed guards state-changing actions on records that track
// individually assigned responsibles. Visibility does not imply the right
// to operate: only TI or an explicitly listed responsible passes.
func AssertOperateAllowed(p model.AccessProfile, viewerID string, responsibles []string) error {
	if p.TI {
		return nil
	}
	for _, id := range responsibles {
		if id == viewerID {
			return nil
		}
	}
	return ErrForbidden
}

// AssertDeleteAllowed reserves hard deletion for the high-trust roles,
// regardless of locality or specialty scope.
func AssertDeleteAllowed(p model.AccessProfile) error {
	if p.TI || p.NationalCommission {
		return nil
	}
	return ErrForbidden
}

// groupBranch builds "(specialty_id IS NULL OR specialty_id = ? [OR
// elo_role_id = ?])" from the available identifiers.
func groupBranch(specialtyID, eloRoleID *string, byEloRole bool) Condition {
	clauses := []string{"specialty_id IS NULL"}
	var args []interface{}
	if specialtyID != nil {
		clauses = append(clauses, "specialty_id = ?")
		args = append(args, *specialtyID)
	}
	if byEloRole && eloRoleID != nil {
		clauses = append(clauses, "elo_role_id = ?")
		args = append(args, *eloRoleID)
	}
	return Condition{Clause: "(" + strings.Join(clauses, " OR ") + ")", Args: args}
}

func eqOrNull(column string, value *string) Condition {
	if value == nil {
		return Condition{Clause: column + " IS NULL"}
	}
	return Condition{Clause: column + " = ?", Args: []interface{}{*value}}
}

func and(conds ...Condition) Condition {
	return combine(" AND ", conds)
}

func or(conds ...Condition) Condition {
	return combine(" OR ", conds)
}

func combine(op string, conds []Condition) Condition {
	var clauses []string
	var args []interface{}
	for _, c := range conds {
		if c.Empty() {
			continue
		}
		clauses = append(clauses, c.Clause)
		args = append(args, c.Args...)
	}
	switch len(clauses) {
	case 0:
		return Condition{}
	case 1:
		return Condition{Clause: clauses[0], Args: args}
	}
	return Condition{Clause: "(" + strings.Join(clauses, op) + ")", Args: args}
}
