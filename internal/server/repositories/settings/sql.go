package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/dbx"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
)

type SQLRepository struct {
	db dbx.DBTX
	d  storage.Dialect
}

func NewSQLRepository(db dbx.DBTX, d storage.Dialect) *SQLRepository {
	return &SQLRepository{db: db, d: d}
}

const settingColumns = `user_id, category, setting_key, setting_value, encrypted, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSetting(row scanner) (*models.UserSetting, error) {
	var (
		s                    models.UserSetting
		createdAt, updatedAt storage.NullTime
	)
	if err := row.Scan(&s.UserID, &s.Category, &s.Key, &s.Value, &s.Encrypted, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return &s, nil
}

func (r *SQLRepository) Get(ctx context.Context, userID int64, category, key string) (*models.UserSetting, error) {
	query := r.d.Rebind(`SELECT ` + settingColumns + ` FROM user_settings
		 WHERE user_id = ? AND category = ? AND setting_key = ?`)

	s, err := scanSetting(r.db.QueryRowContext(ctx, query, userID, category, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) List(ctx context.Context, userID int64, category string) ([]models.UserSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM user_settings WHERE user_id = ?`
	args := []any{userID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category, setting_key`

	rows, err := r.db.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.UserSetting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) Set(ctx context.Context, s *models.UserSetting, now time.Time) error {
	query := r.d.Rebind(
		`INSERT INTO user_settings (user_id, category, setting_key, setting_value, encrypted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category, setting_key) DO UPDATE SET
		   setting_value = excluded.setting_value,
		   encrypted = excluded.encrypted,
		   updated_at = excluded.updated_at`)

	ts := r.d.Time(now)
	_, err := r.db.ExecContext(ctx, query, s.UserID, s.Category, s.Key, s.Value, s.Encrypted, ts, ts)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID int64, category, key string) (bool, error) {
	query := r.d.Rebind(`DELETE FROM user_settings WHERE user_id = ? AND category = ? AND setting_key = ?`)
	res, err := r.db.ExecContext(ctx, query, userID, category, key)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.Affected(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context, userID int64, category string) (int64, error) {
	query := `DELETE FROM user_settings WHERE user_id = ?`
	args := []any{userID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}

	res, err := r.db.ExecContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
