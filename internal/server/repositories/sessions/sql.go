package sessions

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

func (r *SQLRepository) Create(ctx context.Context, s *models.Session) error {
	query := r.d.Rebind(
		`INSERT INTO user_sessions (session_id, user_id, created_at, expires_at, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		s.SessionID, s.UserID, r.d.Time(s.CreatedAt), r.d.Time(s.ExpiresAt), s.IPAddress, s.UserAgent)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Resolve(ctx context.Context, sessionID string, now time.Time) (*models.SessionInfo, error) {
	query := r.d.Rebind(
		`SELECT s.session_id, s.user_id, u.email, u.is_admin, s.expires_at
		 FROM user_sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.session_id = ? AND s.expires_at > ? AND u.is_active = ?`)

	var (
		info      models.SessionInfo
		expiresAt storage.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, sessionID, r.d.Time(now), true).
		Scan(&info.SessionID, &info.UserID, &info.Email, &info.IsAdmin, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	info.ExpiresAt = expiresAt.Time
	return &info, nil
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
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

func (r *SQLRepository) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM user_sessions WHERE session_id = ?`, sessionID)
	return n > 0, err
}

func (r *SQLRepository) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= ?`, r.d.Time(now))
}
