package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
)

// QuotaExceededError reports a rejected Consume with the counts a client
// needs for display. It matches common.ErrQuotaExceeded with errors.Is.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%v: %d of %d used", common.ErrQuotaExceeded, e.Used, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error { return common.ErrQuotaExceeded }

// QuotaService meters daily usage against tiers and manages the tiers
// themselves.
type QuotaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	defaultTier string
	loc         *time.Location
	now         func() time.Time
}

func NewQuotaService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) (*QuotaService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &QuotaService{
		db:          db,
		repomanager: m,
		defaultTier: strings.TrimSpace(cfg.DefaultTier),
		loc:         loc,
		now:         time.Now,
	}, nil
}

// Today is the current calendar date in the configured timezone.
func (s *QuotaService) Today() string {
	return s.now().In(s.loc).Format(common.DateLayout)
}

// GetTierForUser returns the user's tier, the default tier when none is
// assigned, or nil when neither exists.
func (s *QuotaService) GetTierForUser(ctx context.Context, userID int64) (*models.Tier, error) {
	repo := s.repomanager.Tiers(s.db)

	t, err := repo.GetForUser(ctx, userID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if s.defaultTier == "" {
		return nil, nil
	}

	t, err = repo.GetByName(ctx, s.defaultTier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func tierLimit(t *models.Tier) (int, string) {
	if t == nil {
		return 0, ""
	}
	return t.DailyLimit, t.Name
}

func status(used, limit int, tierName, date string) *models.QuotaStatus {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &models.QuotaStatus{
		Allowed:   used < limit,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
		TierName:  tierName,
		Date:      date,
	}
}

func unlimitedStatus(used int, tierName, date string) *models.QuotaStatus {
	return &models.QuotaStatus{
		Allowed:   true,
		Used:      used,
		Limit:     common.UnlimitedQuota,
		Remaining: common.UnlimitedQuota,
		TierName:  tierName,
		Date:      date,
	}
}

// CheckQuota reports today's allowance without changing it. Unlimited tiers
// never touch the usage table.
func (s *QuotaService) CheckQuota(ctx context.Context, userID int64) (*models.QuotaStatus, error) {
	t, err := s.GetTierForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, name := tierLimit(t)
	today := s.Today()
	if t.Unlimited() {
		return unlimitedStatus(0, name, today), nil
	}

	used, err := s.repomanager.Usage(s.db).Get(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return status(used, limit, name, today), nil
}

// IncrementUsage counts one use today regardless of the limit and returns
// the new count.
func (s *QuotaService) IncrementUsage(ctx context.Context, userID int64) (int, error) {
	return s.IncrementUsageOn(ctx, userID, s.Today())
}

func (s *QuotaService) IncrementUsageOn(ctx context.Context, userID int64, date string) (int, error) {
	if _, err := time.Parse(common.DateLayout, date); err != nil {
		return 0, fmt.Errorf("%w: date %q", common.ErrorValidation, date)
	}
	n, err := s.repomanager.Usage(s.db).Increment(ctx, userID, date)
	if err != nil {
		return 0, fmt.Errorf("error incrementing usage: %w", err)
	}
	return n, nil
}

// Consume reserves one use. The check and the increment are one statement,
// so concurrent callers can never take usage past the limit. A rejected
// reservation returns *QuotaExceededError.
func (s *QuotaService) Consume(ctx context.Context, userID int64) (*models.QuotaStatus, error) {
	t, err := s.GetTierForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, name := tierLimit(t)
	repo := s.repomanager.Usage(s.db)
	today := s.Today()

	if t.Unlimited() {
		n, err := repo.Increment(ctx, userID, today)
		if err != nil {
			return nil, fmt.Errorf("error incrementing usage: %w", err)
		}
		return unlimitedStatus(n, name, today), nil
	}

	n, ok, err := repo.IncrementBelow(ctx, userID, today, limit)
	if err != nil {
		return nil, fmt.Errorf("error incrementing usage: %w", err)
	}
	if !ok {
		return nil, &QuotaExceededError{Used: n, Limit: limit}
	}
	return status(n, limit, name, today), nil
}

// Refund returns a use taken by Consume when the work it paid for failed.
// date is the QuotaStatus.Date of that reservation, which may no longer be
// today.
func (s *QuotaService) Refund(ctx context.Context, userID int64, date string) error {
	if _, err := time.Parse(common.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q", common.ErrorValidation, date)
	}
	if _, err := s.repomanager.Usage(s.db).Decrement(ctx, userID, date); err != nil {
		return fmt.Errorf("error refunding usage: %w", err)
	}
	return nil
}

// UsageForUser lists the user's usage rows for the last days days, today
// included, newest first.
func (s *QuotaService) UsageForUser(ctx context.Context, userID int64, days int) ([]models.DailyUsage, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().In(s.loc).AddDate(0, 0, -(days - 1)).Format(common.DateLayout)
	return s.repomanager.Usage(s.db).History(ctx, userID, since)
}

// TierInput carries the editable fields of a tier.
type TierInput struct {
	Name        string
	DailyLimit  int
	Description *string
}

func (in *TierInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: tier name is required", common.ErrorValidation)
	}
	if in.DailyLimit < common.UnlimitedQuota {
		return fmt.Errorf("%w: daily limit must be -1 or more", common.ErrorValidation)
	}
	return nil
}

func (s *QuotaService) CreateTier(ctx context.Context, in TierInput) (*models.Tier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.repomanager.Tiers(s.db).Create(ctx, &models.Tier{
		Name:        in.Name,
		DailyLimit:  in.DailyLimit,
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
	})
}

func (s *QuotaService) UpdateTier(ctx context.Context, id int64, in TierInput) (*models.Tier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repomanager.Tiers(s.db)
	t := &models.Tier{ID: id, Name: in.Name, DailyLimit: in.DailyLimit, Description: in.Description}
	if err := repo.Update(ctx, t, s.now().UTC()); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

func (s *QuotaService) GetTier(ctx context.Context, id int64) (*models.Tier, error) {
	return s.repomanager.Tiers(s.db).GetByID(ctx, id)
}

// ListTiers orders by ascending limit with unlimited tiers last.
func (s *QuotaService) ListTiers(ctx context.Context) ([]models.Tier, error) {
	return s.repomanager.Tiers(s.db).List(ctx)
}

// DeleteTier fails with common.ErrTierInUse while any user is assigned.
func (s *QuotaService) DeleteTier(ctx context.Context, id int64) error {
	return s.repomanager.Tiers(s.db).Delete(ctx, id)
}
