package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	migrationsTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
		id         INT          NOT NULL AUTO_INCREMENT PRIMARY KEY,
		filename   VARCHAR(255) NOT NULL UNIQUE,
		applied_at VARCHAR(64)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	adapt: mysqlAdapt,
	upsertClause: func(_, updateCols []string) string {
		pairs := make([]string, len(updateCols))
		for i, c := range updateCols {
			pairs[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(pairs, ", ")
	},
}

// NewMySQL opens a MySQL connection using cfg.DSN.
func NewMySQL(cfg config.DatabaseConfig) (DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql DSN is required when driver is mysql")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	m := &store{db: db, dialect: mysqlDialect}
	if err := m.Ping(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}
	return m, nil
}

// mysqlAdapt converts SQLite-specific SQL fragments to MySQL equivalents.
func mysqlAdapt(sql string) string {
	sql = strings.ReplaceAll(sql, "INTEGER PRIMARY KEY AUTOINCREMENT",
		"INT NOT NULL AUTO_INCREMENT PRIMARY KEY")
	sql = strings.ReplaceAll(sql, "AUTOINCREMENT", "AUTO_INCREMENT")
	sql = strings.ReplaceAll(sql, " REAL ", " DOUBLE ")
	sql = strings.ReplaceAll(sql, "ON CONFLICT DO NOTHING", "")
	return sql
}
