// Package storagetest opens fully migrated throwaway databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/migrations"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/stretchr/testify/require"
)

// NewSQLite returns a migrated SQLite backend in a temp file. A file is used
// rather than :memory: so every pooled connection sees the same database.
func NewSQLite(t testing.TB) *storage.Backend {
	t.Helper()
	b, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	Migrate(t, b)
	return b
}

// Migrate brings b to the latest schema.
func Migrate(t testing.TB, b *storage.Backend) {
	t.Helper()
	m, err := migrations.New(b.DB, b.Dialect, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, m.MigrateLatest(context.Background()))
}

// InsertUser adds an active user directly and returns its id.
func InsertUser(t testing.TB, b *storage.Backend, email string) int64 {
	t.Helper()
	var id int64
	err := b.DB.QueryRow(b.Dialect.Rebind(
		`INSERT INTO users (email, is_active, is_admin, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		email, true, false, b.Dialect.Time(time.Now())).Scan(&id)
	require.NoError(t, err)
	return id
}

// Count returns SELECT COUNT(*) for the given FROM/WHERE tail.
func Count(t testing.TB, db *sql.DB, tail string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+tail, args...).Scan(&n))
	return n
}
