package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/devbuddy-ai/devbuddy/internal/config"
)

// ErrNotFound is returned by Get when the query matches no row.
var ErrNotFound = errors.New("record not found")

// DB is the storage interface behind the license and usage ledger.
// Implementations exist for SQLite (default) and MySQL.
type DB interface {
	// Select executes a query and scans rows into dest (slice pointer).
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get executes a query expected to return a single row and scans into dest.
	// Columns must be selected in struct field order.
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Exec executes a statement and reports the number of rows it affected.
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)

	// Insert inserts a struct-tagged record into table and returns the new row ID.
	Insert(ctx context.Context, table string, record interface{}) (int64, error)

	// Update updates rows matching the where clause with values from record.
	Update(ctx context.Context, table string, record interface{}, where string, args ...interface{}) error

	// Upsert inserts or updates based on conflictCols.
	Upsert(ctx context.Context, table string, record interface{}, conflictCols []string) error

	// Migrate applies pending schema migrations in order.
	Migrate(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error

	// Driver returns the backend name: "sqlite" or "mysql".
	Driver() string
}

// New returns a DB implementation matching cfg.Driver.
// SQLite is the default when driver is empty.
func New(cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case "mysql":
		return NewMySQL(cfg)
	case "sqlite", "sqlite3", "":
		return NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q (supported: sqlite, mysql)", cfg.Driver)
	}
}

// Open connects using cfg and applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	db, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}
