package invites

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

const inviteColumns = `token, email, invited_by, created_at, expires_at, tier_id, personal_message, used_at, used_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvite(row scanner) (*models.InviteToken, error) {
	var (
		inv                  models.InviteToken
		invitedBy, usedBy    sql.NullInt64
		tierID               sql.NullInt64
		message              sql.NullString
		createdAt, expiresAt storage.NullTime
		usedAt               storage.NullTime
	)
	err := row.Scan(&inv.Token, &inv.Email, &invitedBy, &createdAt, &expiresAt, &tierID, &message, &usedAt, &usedBy)
	if err != nil {
		return nil, err
	}
	inv.InvitedBy = nullInt(invitedBy)
	inv.UsedBy = nullInt(usedBy)
	inv.TierID = nullInt(tierID)
	if message.Valid {
		inv.PersonalMessage = &message.String
	}
	inv.CreatedAt = createdAt.Time
	inv.ExpiresAt = expiresAt.Time
	inv.UsedAt = usedAt.Ptr()
	return &inv, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func intArg(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *SQLRepository) Create(ctx context.Context, inv *models.InviteToken) error {
	query := r.d.Rebind(
		`INSERT INTO invite_tokens (token, email, invited_by, created_at, expires_at, tier_id, personal_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var message any
	if inv.PersonalMessage != nil {
		message = *inv.PersonalMessage
	}
	_, err := r.db.ExecContext(ctx, query,
		inv.Token, inv.Email, intArg(inv.InvitedBy), r.d.Time(inv.CreatedAt), r.d.Time(inv.ExpiresAt),
		intArg(inv.TierID), message)
	if err != nil {
		if r.d.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetValid(ctx context.Context, token string, now time.Time) (*models.InviteToken, error) {
	query := r.d.Rebind(`SELECT ` + inviteColumns + ` FROM invite_tokens
		 WHERE token = ? AND used_at IS NULL AND expires_at > ?`)

	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, token, r.d.Time(now)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *SQLRepository) Consume(ctx context.Context, token string, userID int64, now time.Time) (bool, error) {
	query := r.d.Rebind(
		`UPDATE invite_tokens SET used_at = ?, used_by = ?
		 WHERE token = ? AND used_at IS NULL AND expires_at > ?`)

	ts := r.d.Time(now)
	res, err := r.db.ExecContext(ctx, query, ts, userID, token, ts)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.Affected(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *SQLRepository) Pending(ctx context.Context, now time.Time) ([]models.InviteToken, error) {
	query := r.d.Rebind(`SELECT ` + inviteColumns + ` FROM invite_tokens
		 WHERE used_at IS NULL AND expires_at > ?
		 ORDER BY created_at DESC, token`)

	rows, err := r.db.QueryContext(ctx, query, r.d.Time(now))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.InviteToken
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ExpireSentBy(ctx context.Context, userID int64, now time.Time) (int64, error) {
	query := r.d.Rebind(
		`UPDATE invite_tokens SET expires_at = ?
		 WHERE invited_by = ? AND used_at IS NULL AND expires_at > ?`)

	ts := r.d.Time(now)
	res, err := r.db.ExecContext(ctx, query, ts, userID, ts)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
