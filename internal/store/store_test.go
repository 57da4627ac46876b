package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewTestStore()
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestPermissionCatalogSeeded(t *testing.T) {
	st := newTestStore(t)

	perms, err := st.ListPermissions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := len(seedResources) * len(seedActions) * len(seedScopes)
	if len(perms) != want {
		t.Errorf("expected %d seeded permissions, got %d", want, len(perms))
	}

	p, err := st.GetPermission(context.Background(), "tasks", "operate", model.ScopeLocality)
	if err != nil {
		t.Fatalf("seeded triple missing: %v", err)
	}
	if p.ID == 0 {
		t.Error("seeded permission has no id")
	}
}

func TestInsertIgnoreDialects(t *testing.T) {
	cases := []struct {
		driver string
		want   string
	}{
		{"sqlite", "INSERT OR IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)"},
		{"mysql", "INSERT IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)"},
		{"pgx", "INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?) ON CONFLICT DO NOTHING"},
	}
	for _, tc := range cases {
		st := &Store{driver: tc.driver}
		got := st.insertIgnoreInto("role_permissions", "role_id, permission_id", "?, ?")
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.driver, got, tc.want)
		}
	}
}

func TestRoleLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{
		Name:        "Secretaria",
		Description: "Locality secretary",
		Flags:       model.RoleFlags{Version: 2, ExecutiveHidePII: true},
	}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}
	if role.ID == 0 {
		t.Fatal("role id not populated")
	}

	got, err := st.GetRole(ctx, role.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Secretaria" || !got.Flags.ExecutiveHidePII || got.Flags.Version != 2 {
		t.Errorf("role round trip lost data: %+v", got)
	}

	got.Description = "updated"
	if err := st.UpdateRole(ctx, got); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteRole(ctx, role.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetRole(ctx, role.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRoleFlagsPreserveUnknownKeys(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{
		Name: "Executiva",
		Flags: model.RoleFlags{
			ExecutiveHidePII: true,
			Extra: map[string]json.RawMessage{
				"beta_features": json.RawMessage(`["calendar"]`),
			},
		},
	}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetRole(ctx, role.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Flags.Extra["beta_features"]) != `["calendar"]` {
		t.Errorf("unknown flag key dropped: %+v", got.Flags)
	}
}

func TestSystemRoleProtected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{Name: "TI", IsSystemRole: true, Wildcard: true}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteRole(ctx, role.ID); !errors.Is(err, ErrSystemRole) {
		t.Errorf("expected ErrSystemRole, got %v", err)
	}
	if _, err := st.GetRole(ctx, role.ID); err != nil {
		t.Errorf("system role must still exist: %v", err)
	}
}

func TestGetRoleByNameNormalized(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{Name: "Comissão Nacional"}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"Comissão Nacional", "comissao nacional", "COMISSAO NACIONAL"} {
		got, err := st.GetRoleByName(ctx, name)
		if err != nil {
			t.Errorf("lookup %q failed: %v", name, err)
			continue
		}
		if got.ID != role.ID {
			t.Errorf("lookup %q returned wrong role", name)
		}
	}
}

func TestUserRolePositions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		r := &model.Role{Name: name}
		if err := st.CreateRole(ctx, r); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.ID)
	}

	user := &model.User{ID: "u1", Email: "u1@example.org", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	// Assign out of creation order; retrieval must honor assignment order.
	if err := st.SetUserRoles(ctx, "u1", []int64{ids[2], ids[0]}); err != nil {
		t.Fatal(err)
	}

	roles, err := st.GetRolesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles[0].Name != "C" || roles[1].Name != "A" {
		t.Errorf("unexpected role order: %+v", roles)
	}

	// Replacing assignments drops the old set.
	if err := st.SetUserRoles(ctx, "u1", []int64{ids[1]}); err != nil {
		t.Fatal(err)
	}
	roles, err = st.GetRolesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0].Name != "B" {
		t.Errorf("replacement failed: %+v", roles)
	}
}

func TestModuleOverrideUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := &model.User{ID: "u1", Email: "u1@example.org", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	if err := st.SetModuleOverride(ctx, model.ModuleOverride{UserID: "u1", Resource: "reports", Enabled: false}); err != nil {
		t.Fatal(err)
	}
	// Second write to the same (user, resource) updates in place.
	if err := st.SetModuleOverride(ctx, model.ModuleOverride{UserID: "u1", Resource: "reports", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	overrides, err := st.GetModuleOverridesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 1 || !overrides[0].Enabled {
		t.Errorf("upsert failed: %+v", overrides)
	}

	if err := st.DeleteModuleOverride(ctx, "u1", "reports"); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteModuleOverride(ctx, "u1", "reports"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSetRolePermissionsReplaces(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{Name: "Secretaria"}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}

	pA, err := st.GetPermission(ctx, "tasks", "read", model.ScopeLocality)
	if err != nil {
		t.Fatal(err)
	}
	pB, err := st.GetPermission(ctx, "meetings", "read", model.ScopeLocality)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.SetRolePermissions(ctx, role.ID, []int64{pA.ID}); err != nil {
		t.Fatal(err)
	}
	if err := st.SetRolePermissions(ctx, role.ID, []int64{pB.ID}); err != nil {
		t.Fatal(err)
	}

	perms, err := st.GetRolePermissions(ctx, role.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 1 || perms[0].Resource != "meetings" {
		t.Errorf("expected exactly the new link, got %+v", perms)
	}

	// AddRolePermissions keeps existing links.
	if err := st.AddRolePermissions(ctx, role.ID, []int64{pA.ID, pB.ID}); err != nil {
		t.Fatal(err)
	}
	perms, err = st.GetRolePermissions(ctx, role.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 2 {
		t.Errorf("expected merged links, got %+v", perms)
	}
}

func TestTaskResponsiblesRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &model.Task{
		ID:           "t1",
		Title:        "Prepare camp",
		CreatedBy:    "u1",
		Responsibles: []string{"u1", "u2"},
	}
	if err := st.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetTask(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Responsibles) != 2 {
		t.Errorf("responsibles not loaded: %+v", got.Responsibles)
	}
	if got.Status != model.TaskOpen {
		t.Errorf("default status not applied: %q", got.Status)
	}
}

func TestChecklistItemsJSON(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c := &model.Checklist{
		ID:        "c1",
		Title:     "Opening ceremony",
		CreatedBy: "u1",
		Items: []model.ChecklistItem{
			{Label: "flag", Done: true},
			{Label: "songbook"},
		},
	}
	if err := st.CreateChecklist(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetChecklist(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 2 || !got.Items[0].Done || got.Items[1].Label != "songbook" {
		t.Errorf("items round trip failed: %+v", got.Items)
	}
}

func TestAuditEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.InsertAuditEvent(ctx, &model.AuditEvent{
			ActorID: "u1", Resource: "tasks", Action: "create", EntityID: "t1",
		}); err != nil {
			t.Fatal(err)
		}
	}

	events, err := st.ListAuditEvents(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("limit not applied: %d", len(events))
	}
	if events[0].ID < events[1].ID {
		t.Error("events must be newest first")
	}
}
