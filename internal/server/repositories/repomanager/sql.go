package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/photocaption/internal/dbx"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/migrations"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/invites"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/logintokens"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/querylogs"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/settings"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/syssettings"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/tiers"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/usage"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/users"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
)

// SQLRepositoryManager vends the SQL repositories for one dialect.
type SQLRepositoryManager struct {
	dialect storage.Dialect
	logger  logging.Logger
}

// NewSQLRepositoryManager constructs a manager for the given dialect.
func NewSQLRepositoryManager(d storage.Dialect, logger logging.Logger) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d, logger: logger}
}

var _ RepositoryManager = (*SQLRepositoryManager)(nil)

// migrate is a seam for tests.
var migrate = func(ctx context.Context, db *sql.DB, d storage.Dialect, logger logging.Logger) error {
	m, err := migrations.New(db, d, logger)
	if err != nil {
		return err
	}
	return m.MigrateLatest(ctx)
}

// RunMigrations brings the schema to the latest version.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, m.dialect, m.logger)
}

func (m *SQLRepositoryManager) Dialect() storage.Dialect { return m.dialect }

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) LoginTokens(db dbx.DBTX) logintokens.Repository {
	return logintokens.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Invites(db dbx.DBTX) invites.Repository {
	return invites.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Tiers(db dbx.DBTX) tiers.Repository {
	return tiers.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Usage(db dbx.DBTX) usage.Repository {
	return usage.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) SystemSettings(db dbx.DBTX) syssettings.Repository {
	return syssettings.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) QueryLogs(db dbx.DBTX) querylogs.Repository {
	return querylogs.NewSQLRepository(db, m.dialect)
}
