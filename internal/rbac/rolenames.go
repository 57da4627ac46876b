package rbac

import (
	"strings"

	"github.com/orgdesk/orgdesk/internal/model"
)

// RoleCategory classifies role names for scope-profile derivation.
type RoleCategory string

const (
	CategoryIT                 RoleCategory = "it"
	CategoryNationalCommission RoleCategory = "national_commission"
	CategoryLocalityAdmin      RoleCategory = "locality_admin"
	CategorySpecialtyAdmin     RoleCategory = "specialty_admin"
)

// RoleNameTable maps literal role names to categories. The table is
// configuration, not code: deployments rename roles in orgdesk.yaml without
// touching the guard logic. All matching is case- and diacritic-insensitive.
type RoleNameTable struct {
	IT                 []string `yaml:"it" mapstructure:"it"`
	NationalCommission []string `yaml:"national_commission" mapstructure:"national_commission"`
	LocalityAdmin      []string `yaml:"locality_admin" mapstructure:"locality_admin"`
	SpecialtyAdmin     []string `yaml:"specialty_admin" mapstructure:"specialty_admin"`
	// SpecialtyAdminContains are substrings that mark a role name as a
	// specialty admin even when the exact name is not listed.
	SpecialtyAdminContains []string `yaml:"specialty_admin_contains" mapstructure:"specialty_admin_contains"`
}

// DefaultRoleNameTable returns the shipped role-name sets, matching the
// historical deployment names.
func DefaultRoleNameTable() *RoleNameTable {
	return &RoleNameTable{
		IT:                 []string{"TI"},
		NationalCommission: []string{"Comissão Nacional", "Presidência Nacional"},
		LocalityAdmin:      []string{"GSD Localidade", "Admin Localidade"},
		SpecialtyAdmin:     []string{"GSD Especialidade"},
		SpecialtyAdminContains: []string{
			"admin especialidade",
			"specialty admin",
		},
	}
}

// Category returns the category a role name falls into, or "" when it is a
// plain role.
func (t *RoleNameTable) Category(roleName string) RoleCategory {
	name := model.NormalizeRoleName(roleName)

	if matchAny(name, t.IT) {
		return CategoryIT
	}
	if matchAny(name, t.NationalCommission) {
		return CategoryNationalCommission
	}
	if matchAny(name, t.LocalityAdmin) {
		return CategoryLocalityAdmin
	}
	if matchAny(name, t.SpecialtyAdmin) {
		return CategorySpecialtyAdmin
	}
	for _, sub := range t.SpecialtyAdminContains {
		if strings.Contains(name, model.NormalizeRoleName(sub)) {
			return CategorySpecialtyAdmin
		}
	}
	return ""
}

func matchAny(normalized string, names []string) bool {
	for _, n := range names {
		if normalized == model.NormalizeRoleName(n) {
			return true
		}
	}
	return false
}
