package users

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

const userColumns = `id, email, is_active, is_admin, tier_id, created_at, last_login`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, extra ...any) (*models.User, error) {
	var (
		u         models.User
		tierID    sql.NullInt64
		createdAt storage.NullTime
		lastLogin storage.NullTime
	)
	dest := append([]any{&u.ID, &u.Email, &u.IsActive, &u.IsAdmin, &tierID, &createdAt, &lastLogin}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if tierID.Valid {
		u.TierID = &tierID.Int64
	}
	u.CreatedAt = createdAt.Time
	u.LastLogin = lastLogin.Ptr()
	return &u, nil
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := r.d.Rebind(
		`INSERT INTO users (email, is_active, is_admin, tier_id, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`)

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	var tierID any
	if user.TierID != nil {
		tierID = *user.TierID
	}

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.IsActive, user.IsAdmin, tierID, r.d.Time(user.CreatedAt)).Scan(&user.ID)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return nil, common.ErrUserExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *SQLRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	query := r.d.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where)
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "email = ?", email)
}

func (r *SQLRepository) List(ctx context.Context, date string) ([]models.UserSummary, error) {
	query := r.d.Rebind(
		`SELECT u.id, u.email, u.is_active, u.is_admin, u.tier_id, u.created_at, u.last_login,
		        COALESCE(t.name, ''), COALESCE(d.usage_count, 0)
		 FROM users u
		 LEFT JOIN user_tiers t ON t.id = u.tier_id
		 LEFT JOIN daily_usage d ON d.user_id = u.id AND d.date = ?
		 ORDER BY u.created_at DESC, u.id DESC`)

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.UserSummary
	for rows.Next() {
		var s models.UserSummary
		u, err := scanUser(rows, &s.TierName, &s.UsageToday)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.User = *u
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// update runs a single-row UPDATE and reports a missing row as not found.
func (r *SQLRepository) update(ctx context.Context, set string, val any, id int64) error {
	query := r.d.Rebind(`UPDATE users SET ` + set + ` = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, val, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.Affected(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, "last_login", r.d.Time(at), id)
}

func (r *SQLRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, "is_active", active, id)
}

func (r *SQLRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return r.update(ctx, "is_admin", admin, id)
}

func (r *SQLRepository) SetTier(ctx context.Context, id int64, tierID *int64) error {
	var v any
	if tierID != nil {
		v = *tierID
	}
	return r.update(ctx, "tier_id", v, id)
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	query := r.d.Rebind(`DELETE FROM users WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.Affected(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
