package logintokens

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

func (r *SQLRepository) Create(ctx context.Context, t *models.LoginToken) error {
	query := r.d.Rebind(
		`INSERT INTO login_tokens (token, email, created_at, expires_at, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		t.Token, t.Email, r.d.Time(t.CreatedAt), r.d.Time(t.ExpiresAt), t.IPAddress, t.UserAgent)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, token string) (*models.LoginToken, error) {
	query := r.d.Rebind(
		`SELECT token, email, created_at, expires_at, used_at, ip_address, user_agent
		 FROM login_tokens WHERE token = ?`)

	var (
		t                         models.LoginToken
		createdAt, expiresAt, use storage.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&t.Token, &t.Email, &createdAt, &expiresAt, &use, &t.IPAddress, &t.UserAgent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.CreatedAt = createdAt.Time
	t.ExpiresAt = expiresAt.Time
	t.UsedAt = use.Ptr()
	return &t, nil
}

func (r *SQLRepository) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	query := r.d.Rebind(
		`UPDATE login_tokens SET used_at = ?
		 WHERE token = ? AND used_at IS NULL AND expires_at > ?
		 RETURNING email`)

	ts := r.d.Time(now)
	var email string
	if err := r.db.QueryRowContext(ctx, query, ts, token, ts).Scan(&email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return email, nil
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := r.d.Rebind(`DELETE FROM login_tokens WHERE used_at IS NULL AND expires_at <= ?`)
	res, err := r.db.ExecContext(ctx, query, r.d.Time(now))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
