package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/dbx"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/mailer"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
)

// AcceptPath is where invite links point.
const AcceptPath = "/invite/accept"

type InviteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sender      mailer.Sender
	logger      logging.Logger
	inviteTTL   time.Duration
	baseURL     string
	now         func() time.Time
}

func NewInviteService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	sender mailer.Sender, logger logging.Logger) *InviteService {
	return &InviteService{
		db:          db,
		repomanager: m,
		sender:      sender,
		logger:      logger.With("module", "invites"),
		inviteTTL:   cfg.InviteTTL,
		baseURL:     cfg.BaseURL,
		now:         time.Now,
	}
}

// InviteInput describes a new invitation.
type InviteInput struct {
	Email     string
	InvitedBy *int64
	TierID    *int64
	Message   *string
}

// Create stores an invite and sends it. A tier, when given, must exist.
func (s *InviteService) Create(ctx context.Context, in InviteInput) (*models.InviteToken, error) {
	email, err := common.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.TierID != nil {
		if _, err := s.repomanager.Tiers(s.db).GetByID(ctx, *in.TierID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorInvalidTier
			}
			return nil, err
		}
	}
	if in.Message != nil {
		m := strings.TrimSpace(*in.Message)
		if m == "" {
			in.Message = nil
		} else {
			in.Message = &m
		}
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	now := s.now().UTC()
	inv := &models.InviteToken{
		Token:           token,
		Email:           email,
		InvitedBy:       in.InvitedBy,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.inviteTTL),
		TierID:          in.TierID,
		PersonalMessage: in.Message,
	}
	if err := s.repomanager.Invites(s.db).Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("error creating invite: %w", err)
	}

	link := mailer.Link(s.baseURL, AcceptPath, token)
	if err := s.sender.SendInvite(ctx, email, link, inv.PersonalMessage, inv.ExpiresAt); err != nil {
		return nil, fmt.Errorf("error sending invite: %w", err)
	}
	s.logger.Info(ctx, "invite created", "email", email)
	return inv, nil
}

// Accept redeems an invite: the invited user is created, or fetched when it
// already exists, and given the invite's tier. Everything happens in one
// transaction, so a failed redemption leaves the invite unused.
func (s *InviteService) Accept(ctx context.Context, token string) (*models.User, error) {
	now := s.now().UTC()

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		inv, err := s.repomanager.Invites(tx).GetValid(ctx, token, now)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}

		if inv.TierID != nil {
			if _, err := s.repomanager.Tiers(tx).GetByID(ctx, *inv.TierID); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrorInvalidTier
				}
				return err
			}
		}

		users := s.repomanager.Users(tx)
		user, err = users.GetByEmail(ctx, inv.Email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			user, err = users.Create(ctx, &models.User{
				Email:     inv.Email,
				IsActive:  true,
				TierID:    inv.TierID,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if !user.IsActive {
				return common.ErrorUnauthorized
			}
			if inv.TierID != nil {
				if err := users.SetTier(ctx, user.ID, inv.TierID); err != nil {
					return err
				}
				user.TierID = inv.TierID
			}
		}

		if err := users.UpdateLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		user.LastLogin = &now

		ok, err := s.repomanager.Invites(tx).Consume(ctx, token, user.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrInvalidToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "invite accepted", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Pending lists unused, unexpired invites, newest first.
func (s *InviteService) Pending(ctx context.Context) ([]models.InviteToken, error) {
	return s.repomanager.Invites(s.db).Pending(ctx, s.now().UTC())
}
