package syssettings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/dbx"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
)

type SQLRepository struct {
	db dbx.DBTX
	d  storage.Dialect
}

func NewSQLRepository(db dbx.DBTX, d storage.Dialect) *SQLRepository {
	return &SQLRepository{db: db, d: d}
}

func (r *SQLRepository) Get(ctx context.Context, name string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT value FROM system_settings WHERE name = ?`), name).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *SQLRepository) Set(ctx context.Context, name, value string, now time.Time) error {
	query := r.d.Rebind(
		`INSERT INTO system_settings (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, name, value, r.d.Time(now)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
