package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type QueryLogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	loc         *time.Location
	now         func() time.Time
}

func NewQueryLogService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) (*QueryLogService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &QueryLogService{db: db, repomanager: m, loc: loc, now: time.Now}, nil
}

// QueryRecord describes one finished generation request.
type QueryRecord struct {
	Source         string
	UserID         *int64
	Email          string
	Duration       time.Duration
	ResponseLength int
}

func (s *QueryLogService) Record(ctx context.Context, r QueryRecord) (*models.QueryLog, error) {
	source := strings.TrimSpace(r.Source)
	if source == "" {
		source = "web"
	}
	l := &models.QueryLog{
		ID:               uuid.NewString(),
		Source:           source,
		UserID:           r.UserID,
		Email:            r.Email,
		ProcessingTimeMs: r.Duration.Milliseconds(),
		ResponseLength:   r.ResponseLength,
		Timestamp:        s.now().UTC(),
	}
	if err := s.repomanager.QueryLogs(s.db).Insert(ctx, l); err != nil {
		return nil, fmt.Errorf("error recording query: %w", err)
	}
	return l, nil
}

// Stats counts "today" from local midnight in the configured timezone.
func (s *QueryLogService) Stats(ctx context.Context) (*models.QueryStats, error) {
	local := s.now().In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return s.repomanager.QueryLogs(s.db).Stats(ctx, dayStart.UTC())
}

func (s *QueryLogService) Recent(ctx context.Context, limit int) ([]models.QueryLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repomanager.QueryLogs(s.db).Recent(ctx, limit)
}
