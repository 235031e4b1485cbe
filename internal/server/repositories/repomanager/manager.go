// Package repomanager vends repositories bound to a DBTX, so services can run
// the same repositories against the pool or inside a transaction, and exposes
// the schema migration hook for the active backend.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/photocaption/internal/dbx"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/invites"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/logintokens"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/querylogs"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/settings"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/syssettings"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/tiers"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/usage"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	LoginTokens(db dbx.DBTX) logintokens.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Invites(db dbx.DBTX) invites.Repository
	Tiers(db dbx.DBTX) tiers.Repository
	Usage(db dbx.DBTX) usage.Repository
	Settings(db dbx.DBTX) settings.Repository
	SystemSettings(db dbx.DBTX) syssettings.Repository
	QueryLogs(db dbx.DBTX) querylogs.Repository
}
