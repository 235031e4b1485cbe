package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const upsert = `INSERT INTO daily_usage (user_id, date, usage_count) VALUES (?, ?, 1)
		 ON CONFLICT (user_id, date) DO UPDATE SET usage_count = daily_usage.usage_count + 1`

func (r *SQLRepository) Get(ctx context.Context, userID int64, date string) (int, error) {
	query := r.d.Rebind(`SELECT usage_count FROM daily_usage WHERE user_id = ? AND date = ?`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) Increment(ctx context.Context, userID int64, date string) (int, error) {
	query := r.d.Rebind(upsert + ` RETURNING usage_count`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) IncrementBelow(ctx context.Context, userID int64, date string, limit int) (int, bool, error) {
	if limit <= 0 {
		n, err := r.Get(ctx, userID, date)
		return n, false, err
	}

	query := r.d.Rebind(upsert + ` WHERE daily_usage.usage_count < ? RETURNING usage_count`)

	var n int
	err := r.db.QueryRowContext(ctx, query, userID, date, limit).Scan(&n)
	if err == nil {
		return n, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	n, err = r.Get(ctx, userID, date)
	return n, false, err
}

func (r *SQLRepository) Decrement(ctx context.Context, userID int64, date string) (int, error) {
	query := r.d.Rebind(
		`UPDATE daily_usage SET usage_count = usage_count - 1
		 WHERE user_id = ? AND date = ? AND usage_count > 0
		 RETURNING usage_count`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, date).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) History(ctx context.Context, userID int64, since string) ([]models.DailyUsage, error) {
	query := r.d.Rebind(
		`SELECT user_id, date, usage_count FROM daily_usage
		 WHERE user_id = ? AND date >= ?
		 ORDER BY date DESC`)

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.DailyUsage
	for rows.Next() {
		var u models.DailyUsage
		if err := rows.Scan(&u.UserID, &u.Date, &u.UsageCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.d.Rebind(`DELETE FROM daily_usage WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) TotalForDate(ctx context.Context, date string) (int, error) {
	query := r.d.Rebind(`SELECT COALESCE(SUM(usage_count), 0) FROM daily_usage WHERE date = ?`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, date).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
