package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store persists orgdesk's state: users, roles, the permission catalog,
// module overrides, workflow records, and the audit trail. SQLite is the
// default engine; postgres and mysql are selectable via Options.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Options selects the database engine and location.
type Options struct {
	// Driver is "sqlite" (default), "pgx", or "mysql".
	Driver string
	// DSN is the connection string for pgx/mysql. Ignored for sqlite.
	DSN string
	// DataDir is the directory holding the SQLite file. Empty means
	// in-memory (used by tests).
	DataDir string
}

// Open connects to the configured database and runs migrations.
func Open(opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var db *sqlx.DB
	var err error
	switch driver {
	case "sqlite":
		dsn := ":memory:?_journal_mode=WAL"
		if opts.DataDir != "" {
			if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(opts.DataDir, "orgdesk.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
			if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
				err = fmt.Errorf("enable foreign keys: %w", err)
			}
		}
	case "pgx", "mysql":
		db, err = sqlx.Connect(driver, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	// Migrations are written in SQLite dialect and run automatically there.
	// pgx/mysql deployments provision the schema out of band.
	if driver == "sqlite" {
		if err := s.migrate(); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return s, nil
}

// NewTestStore returns an in-memory SQLite store for tests.
func NewTestStore() (*Store, error) {
	return Open(Options{})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind adapts "?" placeholders to the connected driver's bindvar style.
func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

// namedInsertID runs a named insert and returns the generated id. The pgx
// driver has no LastInsertId, so the postgres path appends RETURNING id and
// scans the row instead.
func (s *Store) namedInsertID(ctx context.Context, q string, arg interface{}) (int64, error) {
	if s.driver == "pgx" {
		rows, err := s.db.NamedQueryContext(ctx, q+" RETURNING id", arg)
		if err != nil {
			return 0, err
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, sql.ErrNoRows
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := s.db.NamedExecContext(ctx, q, arg)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// insertIgnoreInto renders the connected engine's skip-on-conflict insert.
// SQLite spells it INSERT OR IGNORE, MySQL INSERT IGNORE, and postgres wants
// an ON CONFLICT clause.
func (s *Store) insertIgnoreInto(table, columns, values string) string {
	switch s.driver {
	case "pgx":
		return "INSERT INTO " + table + " (" + columns + ") VALUES (" + values + ") ON CONFLICT DO NOTHING"
	case "mysql":
		return "INSERT IGNORE INTO " + table + " (" + columns + ") VALUES (" + values + ")"
	default:
		return "INSERT OR IGNORE INTO " + table + " (" + columns + ") VALUES (" + values + ")"
	}
}
