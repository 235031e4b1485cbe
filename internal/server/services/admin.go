package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/dbx"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
)

// AdminService backs the admin console and the operator CLI.
type AdminService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	quota               *QuotaService
	logger              logging.Logger
	registrationDefault bool
	now                 func() time.Time
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	quota *QuotaService, logger logging.Logger) *AdminService {
	return &AdminService{
		db:                  db,
		repomanager:         m,
		quota:               quota,
		logger:              logger.With("module", "admin"),
		registrationDefault: cfg.RegistrationOpen,
		now:                 time.Now,
	}
}

// ListUsers returns every user with tier name and today's usage.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	return s.repomanager.Users(s.db).List(ctx, s.quota.Today())
}

func (s *AdminService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

func (s *AdminService) checkTier(ctx context.Context, db dbx.DBTX, tierID *int64) error {
	if tierID == nil {
		return nil
	}
	if _, err := s.repomanager.Tiers(db).GetByID(ctx, *tierID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInvalidTier
		}
		return err
	}
	return nil
}

// CreateUser adds an active user. A duplicate email yields
// common.ErrUserExists.
func (s *AdminService) CreateUser(ctx context.Context, email string, isAdmin bool, tierID *int64) (*models.User, error) {
	email, err := common.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.checkTier(ctx, s.db, tierID); err != nil {
		return nil, err
	}
	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:     email,
		IsActive:  true,
		IsAdmin:   isAdmin,
		TierID:    tierID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user created", "user_id", u.ID, "email", email, "admin", isAdmin)
	return u, nil
}

// SetActive toggles the soft-delete flag. Deactivating also ends the user's
// sessions.
func (s *AdminService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repomanager.Users(s.db).SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		if _, err := s.repomanager.Sessions(s.db).DeleteForUser(ctx, id); err != nil {
			return err
		}
	}
	s.logger.Info(ctx, "user active changed", "user_id", id, "active", active)
	return nil
}

func (s *AdminService) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return s.repomanager.Users(s.db).SetAdmin(ctx, id, admin)
}

// AssignTier sets or, with nil, clears a user's tier.
func (s *AdminService) AssignTier(ctx context.Context, id int64, tierID *int64) error {
	if err := s.checkTier(ctx, s.db, tierID); err != nil {
		return err
	}
	return s.repomanager.Users(s.db).SetTier(ctx, id, tierID)
}

// DeleteUser hard-deletes a user with their sessions, settings and usage.
// Invites the user sent are expired and kept.
func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	now := s.now().UTC()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if _, err := users.GetByID(ctx, id); err != nil {
			return err
		}
		if _, err := s.repomanager.Sessions(tx).DeleteForUser(ctx, id); err != nil {
			return err
		}
		if _, err := s.repomanager.Settings(tx).DeleteAll(ctx, id, ""); err != nil {
			return err
		}
		if _, err := s.repomanager.Usage(tx).DeleteForUser(ctx, id); err != nil {
			return err
		}
		if _, err := s.repomanager.Invites(tx).ExpireSentBy(ctx, id, now); err != nil {
			return err
		}
		return users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// RevokeSessions logs a user out everywhere.
func (s *AdminService) RevokeSessions(ctx context.Context, id int64) (int64, error) {
	return s.repomanager.Sessions(s.db).DeleteForUser(ctx, id)
}

// GCResult counts rows removed by GC.
type GCResult struct {
	LoginTokens int64
	Sessions    int64
}

// GC removes expired, unused login tokens and expired sessions. Expired rows
// are unusable anyway; this only reclaims space.
func (s *AdminService) GC(ctx context.Context) (*GCResult, error) {
	now := s.now().UTC()
	tokens, err := s.repomanager.LoginTokens(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("error purging login tokens: %w", err)
	}
	sessions, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("error purging sessions: %w", err)
	}
	s.logger.Info(ctx, "expired rows purged", "login_tokens", tokens, "sessions", sessions)
	return &GCResult{LoginTokens: tokens, Sessions: sessions}, nil
}

func (s *AdminService) RegistrationOpen(ctx context.Context) (bool, error) {
	return registrationOpen(ctx, s.repomanager.SystemSettings(s.db), s.registrationDefault)
}

func (s *AdminService) SetRegistrationOpen(ctx context.Context, open bool) error {
	err := s.repomanager.SystemSettings(s.db).Set(ctx, common.SettingRegistrationOpen, strconv.FormatBool(open), s.now().UTC())
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "registration changed", "open", open)
	return nil
}

// UsageToday sums every user's usage for today.
func (s *AdminService) UsageToday(ctx context.Context) (int, error) {
	return s.repomanager.Usage(s.db).TotalForDate(ctx, s.quota.Today())
}
