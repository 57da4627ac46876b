package rbac

import "github.com/orgdesk/orgdesk/internal/model"

// Requirement names the permission an operation needs. A zero Scope means
// any scope satisfies the check.
type Requirement struct {
	Resource string
	Action   string
	Scope    model.Scope
}

// Allow decides whether the context satisfies the requirement.
//
// A nil requirement means the operation needs authentication only. The
// explicit permission set is checked first, with "*" matching any resource
// or action. If that denies, a held wildcard role allows the operation
// unless a module override for the resource is disabled. Overrides exist
// only on the wildcard path and only to deny: an enabled override never
// grants access the permission set would not.
func Allow(ac *model.AccessContext, need *Requirement) bool {
	if need == nil {
		return true
	}

	for _, p := range ac.Permissions {
		if p.Resource != need.Resource && p.Resource != model.Wildcard {
			continue
		}
		if p.Action != need.Action && p.Action != model.Wildcard {
			continue
		}
		if need.Scope != "" && p.Scope != need.Scope {
			continue
		}
		return true
	}

	if ac.HasWildcardRole() {
		for _, o := range ac.Overrides {
			if o.Resource == need.Resource && !o.Enabled {
				return false
			}
		}
		return true
	}

	return false
}

// Require is Allow with the denial converted into ErrForbidden.
func Require(ac *model.AccessContext, need *Requirement) error {
	if !Allow(ac, need) {
		return ErrForbidden
	}
	return nil
}
