package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/store"
)

// ImportMode selects how an imported role's permission links are applied.
type ImportMode string

const (
	// ModeReplace rewrites each role's permission links to exactly match
	// the document.
	ModeReplace ImportMode = "replace"
	// ModeMerge adds missing links and never removes existing ones.
	ModeMerge ImportMode = "merge"
)

// MatrixDocument is a complete, human-reviewable snapshot of the role store
// and its permission links.
type MatrixDocument struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exported_at"`
	Roles      []MatrixRole `json:"roles"`
}

// MatrixRole is one role in a matrix document.
type MatrixRole struct {
	Name                string                    `json:"name"`
	Description         string                    `json:"description"`
	IsSystemRole        bool                      `json:"is_system_role"`
	Wildcard            bool                      `json:"wildcard"`
	Flags               model.RoleFlags           `json:"flags"`
	ConstraintsTemplate model.ConstraintsTemplate `json:"constraints_template"`
	Permissions         []MatrixPermission        `json:"permissions"`
}

// MatrixPermission references a catalog entry by its triple.
type MatrixPermission struct {
	Resource string      `json:"resource"`
	Action   string      `json:"action"`
	Scope    model.Scope `json:"scope"`
}

// ImportResult reports what an import changed.
type ImportResult struct {
	CreatedRoles int `json:"created_roles"`
	UpdatedRoles int `json:"updated_roles"`
}

// SimulationResult is a read-only preview of what a user or role can do.
// For a user it carries the resolved permission set, overrides, and
// wildcard flag; for a role, the raw permission set and wildcard flag.
type SimulationResult struct {
	UserID      string                 `json:"user_id,omitempty"`
	RoleID      int64                  `json:"role_id,omitempty"`
	RoleName    string                 `json:"role_name,omitempty"`
	Wildcard    bool                   `json:"wildcard"`
	Permissions []model.Permission     `json:"permissions"`
	Overrides   []model.ModuleOverride `json:"overrides,omitempty"`
}

// AuditSink receives fire-and-forget audit events. Implementations must
// never block or fail the calling operation.
type AuditSink interface {
	Record(actorID, resource, action, entityID string, diff map[string]interface{})
}

// Matrix implements role-matrix export, import, and access simulation.
type Matrix struct {
	store    Store
	resolver *Resolver
	audit    AuditSink
}

// NewMatrix creates a Matrix over the given store and audit sink.
func NewMatrix(st Store, audit AuditSink) *Matrix {
	return &Matrix{store: st, resolver: NewResolver(st), audit: audit}
}

// Export snapshots every role with its permission links.
func (m *Matrix) Export(ctx context.Context) (*MatrixDocument, error) {
	roles, err := m.store.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("export roles: %w", err)
	}

	doc := &MatrixDocument{
		Version:    1,
		ExportedAt: time.Now().UTC(),
		Roles:      make([]MatrixRole, 0, len(roles)),
	}
	for _, r := range roles {
		mr := MatrixRole{
			Name:                r.Name,
			Description:         r.Description,
			IsSystemRole:        r.IsSystemRole,
			Wildcard:            r.Wildcard,
			Flags:               r.Flags,
			ConstraintsTemplate: r.ConstraintsTemplate,
			Permissions:         make([]MatrixPermission, 0, len(r.Permissions)),
		}
		for _, p := range r.Permissions {
			mr.Permissions = append(mr.Permissions, MatrixPermission{
				Resource: p.Resource,
				Action:   p.Action,
				Scope:    p.Scope,
			})
		}
		doc.Roles = append(doc.Roles, mr)
	}
	return doc, nil
}

// Import applies a matrix document. Validation is fail-closed: if any role
// references a permission triple missing from the live catalog, nothing is
// modified and the error lists every offending entry. Each role's link
// rewrite is transactional, so a crash mid-import never leaves a role with
// zero permissions.
func (m *Matrix) Import(ctx context.Context, doc *MatrixDocument, mode ImportMode, actorID string) (*ImportResult, error) {
	if mode != ModeReplace && mode != ModeMerge {
		return nil, fmt.Errorf("unknown import mode %q", mode)
	}

	catalog, err := m.store.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load permission catalog: %w", err)
	}
	byKey := make(map[string]int64, len(catalog))
	for _, p := range catalog {
		byKey[p.Key()] = p.ID
	}

	var invalid []InvalidEntry
	permIDs := make([][]int64, len(doc.Roles))
	for i, role := range doc.Roles {
		for _, mp := range role.Permissions {
			key := model.Permission{Resource: mp.Resource, Action: mp.Action, Scope: mp.Scope}.Key()
			id, ok := byKey[key]
			if !ok {
				invalid = append(invalid, InvalidEntry{
					Role:     role.Name,
					Resource: mp.Resource,
					Action:   mp.Action,
					Scope:    mp.Scope,
				})
				continue
			}
			permIDs[i] = append(permIDs[i], id)
		}
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Entries: invalid}
	}

	result := &ImportResult{}
	for i, docRole := range doc.Roles {
		existing, err := m.store.GetRoleByName(ctx, docRole.Name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			role := &model.Role{
				Name:                docRole.Name,
				Description:         docRole.Description,
				IsSystemRole:        docRole.IsSystemRole,
				Wildcard:            docRole.Wildcard,
				Flags:               docRole.Flags,
				ConstraintsTemplate: docRole.ConstraintsTemplate,
			}
			if err := m.store.CreateRole(ctx, role); err != nil {
				return nil, fmt.Errorf("create role %q: %w", docRole.Name, err)
			}
			existing = role
			result.CreatedRoles++
		case err != nil:
			return nil, fmt.Errorf("lookup role %q: %w", docRole.Name, err)
		default:
			existing.Description = docRole.Description
			existing.Wildcard = docRole.Wildcard
			existing.Flags = docRole.Flags
			existing.ConstraintsTemplate = docRole.ConstraintsTemplate
			if err := m.store.UpdateRole(ctx, existing); err != nil {
				return nil, fmt.Errorf("update role %q: %w", docRole.Name, err)
			}
			result.UpdatedRoles++
		}

		switch mode {
		case ModeReplace:
			err = m.store.SetRolePermissions(ctx, existing.ID, permIDs[i])
		case ModeMerge:
			err = m.store.AddRolePermissions(ctx, existing.ID, permIDs[i])
		}
		if err != nil {
			return nil, fmt.Errorf("apply permissions for role %q: %w", docRole.Name, err)
		}
	}

	if m.audit != nil {
		m.audit.Record(actorID, "roles", "import", "", map[string]interface{}{
			"mode":          string(mode),
			"created_roles": result.CreatedRoles,
			"updated_roles": result.UpdatedRoles,
		})
	}
	return result, nil
}

// SimulateUser previews a user's resolved access without granting anything.
func (m *Matrix) SimulateUser(ctx context.Context, userID string) (*SimulationResult, error) {
	ac, err := m.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SimulationResult{
		UserID:      ac.UserID,
		Wildcard:    ac.HasWildcardRole(),
		Permissions: ac.Permissions,
		Overrides:   ac.Overrides,
	}, nil
}

// SimulateRole previews a role's raw permission set.
func (m *Matrix) SimulateRole(ctx context.Context, roleID int64) (*SimulationResult, error) {
	role, err := m.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return &SimulationResult{
		RoleID:      role.ID,
		RoleName:    role.Name,
		Wildcard:    role.Wildcard,
		Permissions: role.Permissions,
	}, nil
}
