package store

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			locality_id TEXT,
			specialty_id TEXT,
			elo_role_id TEXT,
			executive_hide_pii INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			last_login_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			resource TEXT NOT NULL,
			action TEXT NOT NULL,
			scope TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			UNIQUE(resource, action, scope)
		)`,

		`CREATE TABLE IF NOT EXISTS roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			name_normalized TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_system_role INTEGER NOT NULL DEFAULT 0,
			wildcard INTEGER NOT NULL DEFAULT 0,
			flags_json TEXT NOT NULL DEFAULT '{}',
			constraints_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS role_permissions (
			role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id INTEGER NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		)`,

		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, role_id)
		)`,

		`CREATE TABLE IF NOT EXISTS module_overrides (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			resource TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (user_id, resource)
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			locality_id TEXT,
			specialty_id TEXT,
			elo_role_id TEXT,
			due_at DATETIME,
			created_by TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS task_responsibles (
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			PRIMARY KEY (task_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS task_comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			author_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS meetings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			locality_id TEXT,
			held_at DATETIME NOT NULL,
			minutes TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS checklists (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			locality_id TEXT,
			specialty_id TEXT,
			items_json TEXT NOT NULL DEFAULT '[]',
			created_by TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			author_id TEXT NOT NULL,
			author_name TEXT NOT NULL DEFAULT '',
			author_email TEXT NOT NULL DEFAULT '',
			locality_id TEXT,
			specialty_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id TEXT NOT NULL,
			resource TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			diff TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_user_roles_user ON user_roles(user_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_locality ON tasks(locality_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_author ON reports(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// ALTER TABLE ADD COLUMN fails if the column already exists;
			// treat "duplicate column" as a no-op for idempotent migrations.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return s.seedPermissions()
}

// seedResources and seedActions define the shipped permission catalog. Every
// (resource, action) pair is seeded once per scope.
var (
	seedResources = []string{"tasks", "meetings", "checklists", "reports", "users", "roles", "localities", "specialties", "audit"}
	seedActions   = []string{"read", "create", "update", "delete", "operate", "export"}
	seedScopes    = []string{"national", "locality", "specialty", "locality_specialty", "own"}
)

func (s *Store) seedPermissions() error {
	const insert = `INSERT OR IGNORE INTO permissions (resource, action, scope) VALUES (?, ?, ?)`

	for _, res := range seedResources {
		for _, act := range seedActions {
			for _, sc := range seedScopes {
				if _, err := s.db.Exec(insert, res, act, sc); err != nil {
					return fmt.Errorf("seed permission %s/%s/%s: %w", res, act, sc, err)
				}
			}
		}
	}
	return nil
}
