package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
)

// roleRow maps 1:1 to the roles table. Flags and the constraints template
// are stored as JSON columns.
type roleRow struct {
	ID              int64     `db:"id"`
	Name            string    `db:"name"`
	NameNormalized  string    `db:"name_normalized"`
	Description     string    `db:"description"`
	IsSystemRole    bool      `db:"is_system_role"`
	Wildcard        bool      `db:"wildcard"`
	FlagsJSON       string    `db:"flags_json"`
	ConstraintsJSON string    `db:"constraints_json"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func roleRowFromModel(role *model.Role) (roleRow, error) {
	flagsJSON, err := json.Marshal(role.Flags)
	if err != nil {
		return roleRow{}, fmt.Errorf("marshal role flags: %w", err)
	}
	constraintsJSON, err := json.Marshal(role.ConstraintsTemplate)
	if err != nil {
		return roleRow{}, fmt.Errorf("marshal constraints template: %w", err)
	}
	return roleRow{
		ID:              role.ID,
		Name:            role.Name,
		NameNormalized:  model.NormalizeRoleName(role.Name),
		Description:     role.Description,
		IsSystemRole:    role.IsSystemRole,
		Wildcard:        role.Wildcard,
		FlagsJSON:       string(flagsJSON),
		ConstraintsJSON: string(constraintsJSON),
		CreatedAt:       role.CreatedAt,
		UpdatedAt:       role.UpdatedAt,
	}, nil
}

func (r roleRow) toModel() (model.Role, error) {
	role := model.Role{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		IsSystemRole: r.IsSystemRole,
		Wildcard:     r.Wildcard,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.FlagsJSON != "" {
		if err := json.Unmarshal([]byte(r.FlagsJSON), &role.Flags); err != nil {
			return model.Role{}, fmt.Errorf("unmarshal role flags: %w", err)
		}
	}
	if r.ConstraintsJSON != "" {
		if err := json.Unmarshal([]byte(r.ConstraintsJSON), &role.ConstraintsTemplate); err != nil {
			return model.Role{}, fmt.Errorf("unmarshal constraints template: %w", err)
		}
	}
	return role, nil
}

// CreateRole inserts a new role. The ID, CreatedAt, and UpdatedAt fields are
// populated after a successful insert.
func (s *Store) CreateRole(ctx context.Context, role *model.Role) error {
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	row, err := roleRowFromModel(role)
	if err != nil {
		return err
	}

	const q = `INSERT INTO roles
		(name, name_normalized, description, is_system_role, wildcard, flags_json, constraints_json, created_at, updated_at)
		VALUES
		(:name, :name_normalized, :description, :is_system_role, :wildcard, :flags_json, :constraints_json, :created_at, :updated_at)`

	id, err := s.namedInsertID(ctx, q, row)
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	role.ID = id
	return nil
}

// GetRole returns a role by ID, including its permission set.
func (s *Store) GetRole(ctx context.Context, id int64) (*model.Role, error) {
	var row roleRow
	if err := s.db.GetContext(ctx, &row, s.rebind("SELECT * FROM roles WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return s.loadRole(ctx, row)
}

// GetRoleByName returns a role by name. Matching is case- and
// diacritic-insensitive.
func (s *Store) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var row roleRow
	q := s.rebind("SELECT * FROM roles WHERE name_normalized = ?")
	if err := s.db.GetContext(ctx, &row, q, model.NormalizeRoleName(name)); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return s.loadRole(ctx, row)
}

func (s *Store) loadRole(ctx context.Context, row roleRow) (*model.Role, error) {
	role, err := row.toModel()
	if err != nil {
		return nil, err
	}
	perms, err := s.GetRolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return &role, nil
}

// ListRoles returns all roles with their permission sets.
func (s *Store) ListRoles(ctx context.Context) ([]model.Role, error) {
	var rows []roleRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM roles ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	roles := make([]model.Role, 0, len(rows))
	for _, r := range rows {
		role, err := s.loadRole(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("load role %d: %w", r.ID, err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// UpdateRole updates a role's metadata. Permission links are managed
// separately via SetRolePermissions.
func (s *Store) UpdateRole(ctx context.Context, role *model.Role) error {
	role.UpdatedAt = time.Now().UTC()
	row, err := roleRowFromModel(role)
	if err != nil {
		return err
	}

	const q = `UPDATE roles SET
		name = :name, name_normalized = :name_normalized, description = :description,
		is_system_role = :is_system_role, wildcard = :wildcard,
		flags_json = :flags_json, constraints_json = :constraints_json, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRole removes a role by ID. System roles are protected; deleting a
// non-system role cascades to its permission links and user assignments.
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	var isSystem bool
	q := s.rebind("SELECT is_system_role FROM roles WHERE id = ?")
	if err := s.db.GetContext(ctx, &isSystem, q, id); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("check system role: %w", err)
	}
	if isSystem {
		return ErrSystemRole
	}

	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM roles WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete role rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRolePermissions returns a role's permission set.
func (s *Store) GetRolePermissions(ctx context.Context, roleID int64) ([]model.Permission, error) {
	var perms []model.Permission
	q := s.rebind(`SELECT p.* FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ? ORDER BY p.resource, p.action, p.scope`)
	if err := s.db.SelectContext(ctx, &perms, q, roleID); err != nil {
		return nil, fmt.Errorf("get role permissions: %w", err)
	}
	return perms, nil
}

// SetRolePermissions replaces a role's permission links wholesale within a
// transaction. A crash mid-rewrite never leaves the role with zero links.
func (s *Store) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del := s.rebind("DELETE FROM role_permissions WHERE role_id = ?")
	if _, err := tx.ExecContext(ctx, del, roleID); err != nil {
		return fmt.Errorf("delete existing role permissions: %w", err)
	}

	ins := s.rebind("INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)")
	for _, pid := range permissionIDs {
		if _, err := tx.ExecContext(ctx, ins, roleID, pid); err != nil {
			return fmt.Errorf("insert role permission: %w", err)
		}
	}
	return tx.Commit()
}

// AddRolePermissions adds permission links that are not already present.
// Existing links are never removed (merge semantics).
func (s *Store) AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ins := s.rebind(s.insertIgnoreInto("role_permissions", "role_id, permission_id", "?, ?"))
	for _, pid := range permissionIDs {
		if _, err := tx.ExecContext(ctx, ins, roleID, pid); err != nil {
			return fmt.Errorf("add role permission: %w", err)
		}
	}
	return tx.Commit()
}
