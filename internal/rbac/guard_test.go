package rbac

import (
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
)

func TestAllowExplicitPermission(t *testing.T) {
	ac := &model.AccessContext{
		UserID: "u1",
		Permissions: []model.Permission{
			{Resource: "tasks", Action: "read", Scope: model.ScopeLocality},
		},
	}

	if !Allow(ac, &Requirement{Resource: "tasks", Action: "read"}) {
		t.Error("expected tasks.read to be allowed")
	}
	if Allow(ac, &Requirement{Resource: "tasks", Action: "delete"}) {
		t.Error("expected tasks.delete to be denied")
	}
	if Allow(ac, &Requirement{Resource: "reports", Action: "read"}) {
		t.Error("expected reports.read to be denied")
	}
}

func TestAllowScopeRequirement(t *testing.T) {
	ac := &model.AccessContext{
		UserID: "u1",
		Permissions: []model.Permission{
			{Resource: "tasks", Action: "read", Scope: model.ScopeOwn},
		},
	}

	if !Allow(ac, &Requirement{Resource: "tasks", Action: "read"}) {
		t.Error("requirement without scope should accept any held scope")
	}
	if !Allow(ac, &Requirement{Resource: "tasks", Action: "read", Scope: model.ScopeOwn}) {
		t.Error("matching scope should be allowed")
	}
	if Allow(ac, &Requirement{Resource: "tasks", Action: "read", Scope: model.ScopeNational}) {
		t.Error("own-scoped permission must not satisfy a national requirement")
	}
}

func TestAllowWildcardTokens(t *testing.T) {
	ac := &model.AccessContext{
		UserID: "u1",
		Permissions: []model.Permission{
			{Resource: model.Wildcard, Action: "read", Scope: model.ScopeNational},
			{Resource: "roles", Action: model.Wildcard, Scope: model.ScopeNational},
		},
	}

	if !Allow(ac, &Requirement{Resource: "meetings", Action: "read"}) {
		t.Error("'*' resource should match any resource")
	}
	if !Allow(ac, &Requirement{Resource: "roles", Action: "delete"}) {
		t.Error("'*' action should match any action")
	}
	if Allow(ac, &Requirement{Resource: "meetings", Action: "delete"}) {
		t.Error("neither token covers meetings.delete")
	}
}

func TestAllowNilRequirement(t *testing.T) {
	ac := &model.AccessContext{UserID: "u1"}
	if !Allow(ac, nil) {
		t.Error("nil requirement means authenticated-only")
	}
}

func TestWildcardRoleMinusOverride(t *testing.T) {
	ac := &model.AccessContext{
		UserID: "u1",
		Roles:  []model.RoleGrant{{ID: 1, Name: "TI", Wildcard: true}},
		Overrides: []model.ModuleOverride{
			{UserID: "u1", Resource: "reports", Enabled: false},
		},
	}

	if !Allow(ac, &Requirement{Resource: "tasks", Action: "delete"}) {
		t.Error("wildcard role should allow tasks.delete")
	}
	if Allow(ac, &Requirement{Resource: "reports", Action: "read"}) {
		t.Error("disabled override must block the wildcard path for reports")
	}
}

func TestOverrideGrantsNothing(t *testing.T) {
	// An enabled override on a user without wildcard roles or explicit
	// permissions must not open anything.
	ac := &model.AccessContext{
		UserID: "u1",
		Overrides: []model.ModuleOverride{
			{UserID: "u1", Resource: "tasks", Enabled: true},
		},
	}
	if Allow(ac, &Requirement{Resource: "tasks", Action: "read"}) {
		t.Error("enabled override must never grant access by itself")
	}
}

func TestOverrideDoesNotTouchExplicitPermissions(t *testing.T) {
	// The override applies only on the wildcard path. A user holding an
	// explicit permission keeps it even with a disabled override.
	ac := &model.AccessContext{
		UserID: "u1",
		Permissions: []model.Permission{
			{Resource: "reports", Action: "read", Scope: model.ScopeOwn},
		},
		Overrides: []model.ModuleOverride{
			{UserID: "u1", Resource: "reports", Enabled: false},
		},
	}
	if !Allow(ac, &Requirement{Resource: "reports", Action: "read"}) {
		t.Error("explicit permission must survive a disabled override")
	}
}

func TestRequireReturnsForbidden(t *testing.T) {
	ac := &model.AccessContext{UserID: "u1"}
	err := Require(ac, &Requirement{Resource: "tasks", Action: "read"})
	if err != ErrForbidden {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := Require(ac, nil); err != nil {
		t.Errorf("nil requirement should pass, got %v", err)
	}
}
