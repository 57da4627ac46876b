package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orgdesk/orgdesk/internal/model"
)

// ListPermissions returns the full permission catalog.
func (s *Store) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	q := s.rebind("SELECT * FROM permissions ORDER BY resource, action, scope")
	if err := s.db.SelectContext(ctx, &perms, q); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// GetPermission returns a catalog entry by its (resource, action, scope)
// triple.
func (s *Store) GetPermission(ctx context.Context, resource, action string, scope model.Scope) (*model.Permission, error) {
	var p model.Permission
	q := s.rebind("SELECT * FROM permissions WHERE resource = ? AND action = ? AND scope = ?")
	if err := s.db.GetContext(ctx, &p, q, resource, action, scope); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get permission: %w", err)
	}
	return &p, nil
}

// CreatePermission adds a new entry to the catalog. The ID field is
// populated after a successful insert.
func (s *Store) CreatePermission(ctx context.Context, p *model.Permission) error {
	const q = `INSERT INTO permissions (resource, action, scope, description)
		VALUES (:resource, :action, :scope, :description)`

	id, err := s.namedInsertID(ctx, q, p)
	if err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	p.ID = id
	return nil
}
