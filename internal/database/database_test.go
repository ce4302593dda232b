package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/internal/config"
)

type counter struct {
	ID        int64  `db:"id"`
	Month     string `db:"month"`
	Kind      string `db:"kind"`
	Count     int    `db:"count"`
	UpdatedAt string `db:"updated_at"`
}

func openTemp(t *testing.T) DB {
	t.Helper()
	db, err := Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.Migrate(context.Background()))
	assert.Equal(t, "sqlite", db.Driver())
}

func TestInsertGetSelect(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	id, err := db.Insert(ctx, "usage_counters", counter{Month: "2026-10", Kind: "review", Count: 2, UpdatedAt: "now"})
	require.NoError(t, err)
	assert.Positive(t, id)

	var got counter
	require.NoError(t, db.Get(ctx, &got,
		`SELECT id, month, kind, count, updated_at FROM usage_counters WHERE month = ? AND kind = ?`,
		"2026-10", "review"))
	assert.Equal(t, 2, got.Count)

	var all []counter
	require.NoError(t, db.Select(ctx, &all, `SELECT * FROM usage_counters`))
	require.Len(t, all, 1)
	assert.Equal(t, "review", all[0].Kind)
}

func TestGetNotFound(t *testing.T) {
	db := openTemp(t)
	var got counter
	err := db.Get(context.Background(), &got,
		`SELECT id, month, kind, count, updated_at FROM usage_counters WHERE month = ?`, "1999-01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecReportsRowsAffected(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	n, err := db.Exec(ctx, `UPDATE usage_counters SET count = count + 1 WHERE month = ?`, "2026-10")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = db.Insert(ctx, "usage_counters", counter{Month: "2026-10", Kind: "fix", UpdatedAt: "now"})
	require.NoError(t, err)
	n, err = db.Exec(ctx, `UPDATE usage_counters SET count = count + 1 WHERE month = ?`, "2026-10")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUpsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	rec := counter{Month: "2026-10", Kind: "testgen", Count: 1, UpdatedAt: "a"}
	require.NoError(t, db.Upsert(ctx, "usage_counters", rec, []string{"month", "kind"}))
	rec.Count = 7
	require.NoError(t, db.Upsert(ctx, "usage_counters", rec, []string{"month", "kind"}))

	var all []counter
	require.NoError(t, db.Select(ctx, &all, `SELECT * FROM usage_counters`))
	require.Len(t, all, 1)
	assert.Equal(t, 7, all[0].Count)

	rec.Count = 9
	require.NoError(t, db.Update(ctx, "usage_counters", rec, "kind = ?", "testgen"))
	var got counter
	require.NoError(t, db.Get(ctx, &got, `SELECT id, month, kind, count, updated_at FROM usage_counters`))
	assert.Equal(t, 9, got.Count)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMySQLRequiresDSN(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "DSN is required")
}

func TestMySQLAdapt(t *testing.T) {
	out := mysqlAdapt("id INTEGER PRIMARY KEY AUTOINCREMENT, score REAL NOT NULL")
	assert.Contains(t, out, "INT NOT NULL AUTO_INCREMENT PRIMARY KEY")
	assert.Contains(t, out, "DOUBLE")
	assert.False(t, strings.Contains(out, "AUTOINCREMENT"))
}

func TestSplitStatements(t *testing.T) {
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"},
		splitStatements("CREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n"))
}
