// Package migrations is the schema migrator. Migrations are an ordered list of
// Go functions applied through a goose provider; each one runs in its own
// transaction together with the schema_version row that records it, so a
// failing migration leaves the ledger at the last good version.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// VersionStatus describes one known migration.
type VersionStatus struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

type Migrator struct {
	db       *sql.DB
	dialect  storage.Dialect
	logger   logging.Logger
	steps    []step
	provider *goose.Provider
}

// New builds a migrator for the full schema.
func New(db *sql.DB, d storage.Dialect, logger logging.Logger) (*Migrator, error) {
	return newMigrator(db, d, logger, steps())
}

func newMigrator(db *sql.DB, d storage.Dialect, logger logging.Logger, list []step) (*Migrator, error) {
	gms := make([]*goose.Migration, 0, len(list))
	for _, s := range list {
		gms = append(gms, goose.NewGoMigration(s.version, &goose.GoFunc{
			RunTx: func(ctx context.Context, tx *sql.Tx) error {
				return s.up(ctx, tx, d)
			},
		}, nil))
	}

	opts := []goose.ProviderOption{
		goose.WithStore(newVersionStore(d)),
		goose.WithGoMigrations(gms...),
		goose.WithDisableGlobalRegistry(true),
	}
	if d.Name() == storage.KindPostgres {
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, fmt.Errorf("migrations: session locker: %w", err)
		}
		opts = append(opts, goose.WithSessionLocker(locker))
	}

	p, err := goose.NewProvider("", db, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("migrations: provider: %w", err)
	}
	return &Migrator{
		db:       db,
		dialect:  d,
		logger:   logger.With("module", "migrations"),
		steps:    list,
		provider: p,
	}, nil
}

// LatestVersion is the highest version this binary knows about.
func (m *Migrator) LatestVersion() int64 {
	if len(m.steps) == 0 {
		return 0
	}
	return m.steps[len(m.steps)-1].version
}

// CurrentVersion returns the highest applied version, 0 on a fresh database.
func (m *Migrator) CurrentVersion(ctx context.Context) (int64, error) {
	s := newVersionStore(m.dialect)
	exists, err := s.TableExists(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	if !exists {
		return 0, nil
	}
	v, err := s.GetLatestVersion(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	return v, nil
}

// Migrate applies, in order, every migration above the current version up to
// and including target. A target of 0 means the latest version.
func (m *Migrator) Migrate(ctx context.Context, target int64) error {
	if target < 0 {
		return fmt.Errorf("migrations: invalid target version %d", target)
	}
	if target == 0 || target > m.LatestVersion() {
		target = m.LatestVersion()
	}
	if target == 0 {
		return nil
	}

	from, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if from >= target {
		m.logger.Debug(ctx, "schema up to date", "version", from)
		return nil
	}

	results, err := m.provider.UpTo(ctx, target)
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		m.logger.Info(ctx, "migration applied",
			"version", r.Source.Version,
			"name", m.name(r.Source.Version),
			"duration", r.Duration)
	}
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) && partial.Failed != nil && partial.Failed.Source != nil {
			v := partial.Failed.Source.Version
			return fmt.Errorf("migrations: version %d (%s) failed: %w", v, m.name(v), partial.Err)
		}
		return fmt.Errorf("migrations: %w", err)
	}

	m.logger.Info(ctx, "schema migrated", "from", from, "to", target)
	return nil
}

// MigrateLatest applies every pending migration.
func (m *Migrator) MigrateLatest(ctx context.Context) error {
	return m.Migrate(ctx, 0)
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]VersionStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: status: %w", err)
	}
	out := make([]VersionStatus, 0, len(statuses))
	for _, st := range statuses {
		vs := VersionStatus{
			Version: st.Source.Version,
			Name:    m.name(st.Source.Version),
			Applied: st.State == goose.StateApplied,
		}
		if vs.Applied && !st.AppliedAt.IsZero() {
			at := st.AppliedAt
			vs.AppliedAt = &at
		}
		out = append(out, vs)
	}
	return out, nil
}

func (m *Migrator) name(version int64) string {
	for _, s := range m.steps {
		if s.version == version {
			return s.name
		}
	}
	return ""
}
