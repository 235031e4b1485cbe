package tiers

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

const tierColumns = `t.id, t.name, t.daily_limit, t.description, t.created_at, t.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTier(row scanner) (*models.Tier, error) {
	var (
		t                    models.Tier
		desc                 sql.NullString
		createdAt, updatedAt storage.NullTime
	)
	if err := row.Scan(&t.ID, &t.Name, &t.DailyLimit, &desc, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

func descArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *SQLRepository) Create(ctx context.Context, t *models.Tier) (*models.Tier, error) {
	query := r.d.Rebind(
		`INSERT INTO user_tiers (name, daily_limit, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`)

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	ts := r.d.Time(t.CreatedAt)

	err := r.db.QueryRowContext(ctx, query, t.Name, t.DailyLimit, descArg(t.Description), ts, ts).Scan(&t.ID)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return nil, common.ErrTierExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *SQLRepository) Update(ctx context.Context, t *models.Tier, now time.Time) error {
	query := r.d.Rebind(
		`UPDATE user_tiers SET name = ?, daily_limit = ?, description = ?, updated_at = ?
		 WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, t.Name, t.DailyLimit, descArg(t.Description), r.d.Time(now), t.ID)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return common.ErrTierExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.Affected(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	t.UpdatedAt = now
	return nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.Tier, error) {
	t, err := scanTier(r.db.QueryRowContext(ctx, r.d.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Tier, error) {
	return r.getOne(ctx, `SELECT `+tierColumns+` FROM user_tiers t WHERE t.id = ?`, id)
}

func (r *SQLRepository) GetByName(ctx context.Context, name string) (*models.Tier, error) {
	return r.getOne(ctx, `SELECT `+tierColumns+` FROM user_tiers t WHERE t.name = ?`, name)
}

func (r *SQLRepository) GetForUser(ctx context.Context, userID int64) (*models.Tier, error) {
	return r.getOne(ctx, `SELECT `+tierColumns+` FROM users u JOIN user_tiers t ON t.id = u.tier_id WHERE u.id = ?`, userID)
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Tier, error) {
	query := `SELECT ` + tierColumns + ` FROM user_tiers t
		 ORDER BY CASE WHEN t.daily_limit < 0 THEN 1 ELSE 0 END, t.daily_limit, t.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Delete is a single conditional statement so a concurrent assignment cannot
// slip in between the reference check and the delete.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	query := r.d.Rebind(
		`DELETE FROM user_tiers
		 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM users WHERE tier_id = ?)`)

	res, err := r.db.ExecContext(ctx, query, id, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.Affected(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if ok {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return common.ErrTierInUse
}
