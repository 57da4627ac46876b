package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
)

// CreateUser inserts a new user. The caller supplies the ID (a UUID).
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	const q = `INSERT INTO users
		(id, name, email, password_hash, locality_id, specialty_id, elo_role_id, executive_hide_pii, is_active, created_at, updated_at)
		VALUES
		(:id, :name, :email, :password_hash, :locality_id, :specialty_id, :elo_role_id, :executive_hide_pii, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.GetContext(ctx, &u, s.rebind("SELECT * FROM users WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.GetContext(ctx, &u, s.rebind("SELECT * FROM users WHERE email = ?"), email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUserLastLogin sets the last_login_at timestamp for a user.
func (s *Store) UpdateUserLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	q := s.rebind("UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, now, now, id)
	if err != nil {
		return fmt.Errorf("update user last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserRoles replaces a user's role assignments within a transaction.
// Slice order is preserved as the assignment position; position 0 is the
// user's primary role.
func (s *Store) SetUserRoles(ctx context.Context, userID string, roleIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del := s.rebind("DELETE FROM user_roles WHERE user_id = ?")
	if _, err := tx.ExecContext(ctx, del, userID); err != nil {
		return fmt.Errorf("delete existing user roles: %w", err)
	}

	ins := s.rebind("INSERT INTO user_roles (user_id, role_id, position) VALUES (?, ?, ?)")
	for i, rid := range roleIDs {
		if _, err := tx.ExecContext(ctx, ins, userID, rid, i); err != nil {
			return fmt.Errorf("insert user role: %w", err)
		}
	}
	return tx.Commit()
}

// GetRolesForUser returns the user's roles, permission sets included,
// ordered by assignment position.
func (s *Store) GetRolesForUser(ctx context.Context, userID string) ([]model.Role, error) {
	var rows []roleRow
	q := s.rebind(`SELECT r.* FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ? ORDER BY ur.position`)
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("get roles for user: %w", err)
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

// GetModuleOverridesForUser returns the user's per-resource overrides.
func (s *Store) GetModuleOverridesForUser(ctx context.Context, userID string) ([]model.ModuleOverride, error) {
	var overrides []model.ModuleOverride
	q := s.rebind("SELECT * FROM module_overrides WHERE user_id = ? ORDER BY resource")
	if err := s.db.SelectContext(ctx, &overrides, q, userID); err != nil {
		return nil, fmt.Errorf("get module overrides: %w", err)
	}
	return overrides, nil
}

// SetModuleOverride upserts a single per-user, per-resource override.
func (s *Store) SetModuleOverride(ctx context.Context, o model.ModuleOverride) error {
	const q = `INSERT INTO module_overrides (user_id, resource, enabled)
		VALUES (:user_id, :resource, :enabled)
		ON CONFLICT (user_id, resource) DO UPDATE SET enabled = :enabled`

	if _, err := s.db.NamedExecContext(ctx, q, o); err != nil {
		return fmt.Errorf("set module override: %w", err)
	}
	return nil
}

// DeleteModuleOverride removes an override, restoring default wildcard
// behavior for that resource.
func (s *Store) DeleteModuleOverride(ctx context.Context, userID, resource string) error {
	q := s.rebind("DELETE FROM module_overrides WHERE user_id = ? AND resource = ?")
	result, err := s.db.ExecContext(ctx, q, userID, resource)
	if err != nil {
		return fmt.Errorf("delete module override: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete module override rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
