package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/pressly/goose/v3/database"
)

// VersionTable records one row per applied migration.
const VersionTable = "schema_version"

// versionStore keeps goose's bookkeeping in schema_version(version, applied_at).
// goose expects a version 0 row; it is implied by the table existing instead
// of being stored, so the table only ever lists real migrations.
type versionStore struct {
	d   storage.Dialect
	now func() time.Time
}

var _ database.StoreExtender = (*versionStore)(nil)

func newVersionStore(d storage.Dialect) *versionStore {
	return &versionStore{d: d, now: time.Now}
}

func (s *versionStore) Tablename() string { return VersionTable }

func (s *versionStore) CreateVersionTable(ctx context.Context, db database.DBTxConn) error {
	t := s.d.DDL()
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version %s PRIMARY KEY,
		applied_at %s NOT NULL
	)`, VersionTable, t.BigInt, t.Timestamp)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create %s: %w", VersionTable, err)
	}
	return nil
}

func (s *versionStore) Insert(ctx context.Context, db database.DBTxConn, req database.InsertRequest) error {
	if req.Version == 0 {
		return nil
	}
	q := s.d.Rebind(fmt.Sprintf(`INSERT INTO %s (version, applied_at) VALUES (?, ?)`, VersionTable))
	if _, err := db.ExecContext(ctx, q, req.Version, s.d.Time(s.now())); err != nil {
		return fmt.Errorf("record version %d: %w", req.Version, err)
	}
	return nil
}

func (s *versionStore) Delete(ctx context.Context, db database.DBTxConn, version int64) error {
	q := s.d.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE version = ?`, VersionTable))
	if _, err := db.ExecContext(ctx, q, version); err != nil {
		return fmt.Errorf("delete version %d: %w", version, err)
	}
	return nil
}

func (s *versionStore) GetMigration(ctx context.Context, db database.DBTxConn, version int64) (*database.GetMigrationResult, error) {
	if version == 0 {
		exists, err := s.TableExists(ctx, db)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %d", database.ErrVersionNotFound, version)
		}
		return &database.GetMigrationResult{IsApplied: true}, nil
	}

	q := s.d.Rebind(fmt.Sprintf(`SELECT applied_at FROM %s WHERE version = ?`, VersionTable))
	var at storage.NullTime
	if err := db.QueryRowContext(ctx, q, version).Scan(&at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", database.ErrVersionNotFound, version)
		}
		return nil, fmt.Errorf("get version %d: %w", version, err)
	}
	return &database.GetMigrationResult{Timestamp: at.Time, IsApplied: true}, nil
}

func (s *versionStore) GetLatestVersion(ctx context.Context, db database.DBTxConn) (int64, error) {
	var v sql.NullInt64
	q := fmt.Sprintf(`SELECT MAX(version) FROM %s`, VersionTable)
	if err := db.QueryRowContext(ctx, q).Scan(&v); err != nil {
		return 0, fmt.Errorf("latest version: %w", err)
	}
	return v.Int64, nil
}

// ListMigrations returns applied versions newest first, ending with the
// implied version 0.
func (s *versionStore) ListMigrations(ctx context.Context, db database.DBTxConn) ([]*database.ListMigrationsResult, error) {
	q := fmt.Sprintf(`SELECT version FROM %s ORDER BY version DESC`, VersionTable)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []*database.ListMigrationsResult
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("list versions: %w", err)
		}
		out = append(out, &database.ListMigrationsResult{Version: v, IsApplied: true})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return append(out, &database.ListMigrationsResult{Version: 0, IsApplied: true}), nil
}

func (s *versionStore) TableExists(ctx context.Context, db database.DBTxConn) (bool, error) {
	var q string
	if s.d.Name() == storage.KindPostgres {
		q = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	} else {
		q = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int
	if err := db.QueryRowContext(ctx, q, VersionTable).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s: %w", VersionTable, err)
	}
	return n > 0, nil
}
