package rbac

import (
	"context"
	"fmt"

	"github.com/orgdesk/orgdesk/internal/model"
)

// Store is the data-store surface the access-control core consumes. It is
// implemented by *store.Store.
type Store interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetRolesForUser(ctx context.Context, userID string) ([]model.Role, error)
	GetModuleOverridesForUser(ctx context.Context, userID string) ([]model.ModuleOverride, error)

	ListPermissions(ctx context.Context) ([]model.Permission, error)
	ListRoles(ctx context.Context) ([]model.Role, error)
	GetRole(ctx context.Context, id int64) (*model.Role, error)
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	CreateRole(ctx context.Context, role *model.Role) error
	UpdateRole(ctx context.Context, role *model.Role) error
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// Resolver builds AccessContexts. Resolution is stateless and happens once
// per operation; role and permission edits therefore take effect on the
// very next request with no cache to invalidate.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the user, role memberships, and overrides, and flattens the
// result into an AccessContext. An unknown user id surfaces the store's
// not-found error; callers must treat that as forbidden, not as a 404, to
// avoid leaking account existence.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*model.AccessContext, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	roles, err := r.store.GetRolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles for %s: %w", userID, err)
	}

	overrides, err := r.store.GetModuleOverridesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve overrides for %s: %w", userID, err)
	}

	ac := &model.AccessContext{
		UserID:           user.ID,
		Name:             user.Name,
		Email:            user.Email,
		LocalityID:       user.LocalityID,
		SpecialtyID:      user.SpecialtyID,
		EloRoleID:        user.EloRoleID,
		ExecutiveHidePII: user.ExecutiveHidePII,
		Overrides:        overrides,
	}

	seen := make(map[string]bool)
	for _, role := range roles {
		grant := model.RoleGrant{
			ID:                  role.ID,
			Name:                role.Name,
			Wildcard:            role.Wildcard,
			Flags:               role.Flags,
			ConstraintsTemplate: role.ConstraintsTemplate,
			Permissions:         role.Permissions,
		}
		ac.Roles = append(ac.Roles, grant)

		if role.Flags.ExecutiveHidePII {
			ac.ExecutiveHidePII = true
		}
		for _, p := range role.Permissions {
			if key := p.Key(); !seen[key] {
				seen[key] = true
				ac.Permissions = append(ac.Permissions, p)
			}
		}
	}

	return ac, nil
}
