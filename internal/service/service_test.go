package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

// testEnv bundles the shared fixtures: an in-memory store, a resolver, and
// a quiet audit logger.
type testEnv struct {
	store    *store.Store
	resolver *rbac.Resolver
	profile  *rbac.ProfileResolver
	audit    *AuditLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewTestStore()
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:    st,
		resolver: rbac.NewResolver(st),
		profile:  rbac.NewProfileResolver(nil),
		audit:    NewAuditLogger(st, logger),
	}
}

// seedRole creates a role linked to the given catalog triples.
func (e *testEnv) seedRole(t *testing.T, name string, wildcard bool, triples ...[3]string) *model.Role {
	t.Helper()
	ctx := context.Background()

	role := &model.Role{Name: name, Wildcard: wildcard}
	if err := e.store.CreateRole(ctx, role); err != nil {
		t.Fatalf("create role %q: %v", name, err)
	}

	ids := make([]int64, 0, len(triples))
	for _, tr := range triples {
		p, err := e.store.GetPermission(ctx, tr[0], tr[1], model.Scope(tr[2]))
		if err != nil {
			t.Fatalf("lookup permission %v: %v", tr, err)
		}
		ids = append(ids, p.ID)
	}
	if len(ids) > 0 {
		if err := e.store.SetRolePermissions(ctx, role.ID, ids); err != nil {
			t.Fatalf("link permissions for %q: %v", name, err)
		}
	}
	return role
}

// seedUser creates a user, assigns roles, and resolves their access context.
func (e *testEnv) seedUser(t *testing.T, id string, locality, specialty *string, roleIDs ...int64) *model.AccessContext {
	t.Helper()
	ctx := context.Background()

	user := &model.User{
		ID:          id,
		Name:        "User " + id,
		Email:       id + "@example.org",
		LocalityID:  locality,
		SpecialtyID: specialty,
		IsActive:    true,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user %q: %v", id, err)
	}
	if len(roleIDs) > 0 {
		if err := e.store.SetUserRoles(ctx, id, roleIDs); err != nil {
			t.Fatalf("assign roles to %q: %v", id, err)
		}
	}

	ac, err := e.resolver.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("resolve %q: %v", id, err)
	}
	return ac
}

func strptr(s string) *string { return &s }

// memberTriples is the permission set a regular member role carries for one
// workflow resource.
func memberTriples(resource string) [][3]string {
	return [][3]string{
		{resource, "read", "locality"},
		{resource, "create", "locality"},
		{resource, "update", "locality"},
		{resource, "operate", "locality"},
	}
}
