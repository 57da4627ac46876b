package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/store"
)

func TestResolveUnknownUser(t *testing.T) {
	st := newTestStore(t)
	resolver := NewResolver(st)

	_, err := resolver.Resolve(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestResolveDeduplicatesPermissions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	shared := permIDs(t, st, [3]string{"tasks", "read", "locality"})

	roleA := &model.Role{Name: "Secretaria"}
	roleB := &model.Role{Name: "Tesouraria"}
	for _, r := range []*model.Role{roleA, roleB} {
		if err := st.CreateRole(ctx, r); err != nil {
			t.Fatal(err)
		}
		if err := st.SetRolePermissions(ctx, r.ID, shared); err != nil {
			t.Fatal(err)
		}
	}

	user := &model.User{ID: "u1", Email: "u1@example.org", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := st.SetUserRoles(ctx, user.ID, []int64{roleA.ID, roleB.ID}); err != nil {
		t.Fatal(err)
	}

	ac, err := NewResolver(st).Resolve(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ac.Permissions) != 1 {
		t.Errorf("expected deduplicated permission set, got %d entries", len(ac.Permissions))
	}
	if len(ac.Roles) != 2 {
		t.Errorf("expected both role grants, got %d", len(ac.Roles))
	}
}

func TestResolvePrimaryRoleOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	roleA := &model.Role{Name: "Secretaria"}
	roleB := &model.Role{Name: "Membro"}
	for _, r := range []*model.Role{roleA, roleB} {
		if err := st.CreateRole(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	user := &model.User{ID: "u1", Email: "u1@example.org", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	// Assignment order defines the primary role, not creation order.
	if err := st.SetUserRoles(ctx, user.ID, []int64{roleB.ID, roleA.ID}); err != nil {
		t.Fatal(err)
	}

	ac, err := NewResolver(st).Resolve(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	primary := ac.PrimaryRole()
	if primary == nil || primary.Name != "Membro" {
		t.Errorf("expected Membro as primary role, got %+v", primary)
	}
}

func TestResolveExecutivePIIFlagFromRole(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{
		Name:  "Executiva Nacional",
		Flags: model.RoleFlags{ExecutiveHidePII: true},
	}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}

	user := &model.User{ID: "u1", Email: "u1@example.org", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := st.SetUserRoles(ctx, user.ID, []int64{role.ID}); err != nil {
		t.Fatal(err)
	}

	ac, err := NewResolver(st).Resolve(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !ac.ExecutiveHidePII {
		t.Error("role flag must propagate to the context")
	}
}

func TestResolveIsFreshPerCall(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	role := &model.Role{Name: "Secretaria"}
	if err := st.CreateRole(ctx, role); err != nil {
		t.Fatal(err)
	}
	user := &model.User{ID: "u1", Email: "u1@example.org", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := st.SetUserRoles(ctx, user.ID, []int64{role.ID}); err != nil {
		t.Fatal(err)
	}

	resolver := NewResolver(st)
	ac, err := resolver.Resolve(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ac.Permissions) != 0 {
		t.Fatalf("role has no permissions yet, got %d", len(ac.Permissions))
	}

	// Grant a permission; the next resolution must see it immediately.
	if err := st.SetRolePermissions(ctx, role.ID, permIDs(t, st,
		[3]string{"tasks", "read", "locality"},
	)); err != nil {
		t.Fatal(err)
	}

	ac, err = resolver.Resolve(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ac.Permissions) != 1 {
		t.Errorf("permission edit must take effect on the next resolution, got %d", len(ac.Permissions))
	}
}
