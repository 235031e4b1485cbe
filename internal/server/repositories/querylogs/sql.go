package querylogs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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

func (r *SQLRepository) Insert(ctx context.Context, l *models.QueryLog) error {
	query := r.d.Rebind(
		`INSERT INTO query_logs (id, source, user_id, email, processing_time_ms, response_length, "timestamp")
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var uid any
	if l.UserID != nil {
		uid = *l.UserID
	}
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.Source, uid, l.Email, l.ProcessingTimeMs, l.ResponseLength, r.d.Time(l.Timestamp))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Stats(ctx context.Context, dayStart time.Time) (*models.QueryStats, error) {
	st := &models.QueryStats{BySource: map[string]int{}}

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), CAST(AVG(processing_time_ms) AS DOUBLE PRECISION) FROM query_logs`).
		Scan(&st.Total, &avg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	st.AvgProcessingMs = avg.Float64

	err = r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM query_logs WHERE "timestamp" >= ?`),
		r.d.Time(dayStart)).Scan(&st.Today)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM query_logs GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			src string
			n   int
		)
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		st.BySource[src] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return st, nil
}

func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]models.QueryLog, error) {
	query := r.d.Rebind(
		`SELECT id, source, user_id, email, processing_time_ms, response_length, "timestamp"
		 FROM query_logs ORDER BY "timestamp" DESC, id LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.QueryLog
	for rows.Next() {
		var (
			l     models.QueryLog
			uid   sql.NullInt64
			email sql.NullString
			ts    storage.NullTime
		)
		if err := rows.Scan(&l.ID, &l.Source, &uid, &email, &l.ProcessingTimeMs, &l.ResponseLength, &ts); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if uid.Valid {
			l.UserID = &uid.Int64
		}
		l.Email = email.String
		l.Timestamp = ts.Time
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
