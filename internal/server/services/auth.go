// Package services contains server-side business logic: magic-link login
// and sessions, invites, tiers and quota, user settings, administration and
// query logs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/auth"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/mailer"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/ratelimit"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
)

// VerifyPath is where magic links point.
const VerifyPath = "/auth/verify"

// Login is an established session and the signed cookie value for it.
type Login struct {
	User      *models.User
	SessionID string
	Cookie    string
	ExpiresAt time.Time
}

// Client identifies the caller for audit columns.
type Client struct {
	IP        string
	UserAgent string
}

// AuthService implements magic-link authentication and session handling.
type AuthService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	signer              *auth.Signer
	limiter             ratelimit.Limiter
	sender              mailer.Sender
	logger              logging.Logger
	loginTokenTTL       time.Duration
	sessionTTL          time.Duration
	registrationDefault bool
	baseURL             string
	now                 func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	signer *auth.Signer, limiter ratelimit.Limiter, sender mailer.Sender, logger logging.Logger) *AuthService {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &AuthService{
		db:                  db,
		repomanager:         m,
		signer:              signer,
		limiter:             limiter,
		sender:              sender,
		logger:              logger.With("module", "auth"),
		loginTokenTTL:       cfg.LoginTokenTTL,
		sessionTTL:          cfg.SessionTTL,
		registrationDefault: cfg.RegistrationOpen,
		baseURL:             cfg.BaseURL,
		now:                 time.Now,
	}
}

func (s *AuthService) allow(ctx context.Context, key string) bool {
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "rate limiter unavailable", "key", key, "error", err)
		return false
	}
	return ok
}

// RequestLogin issues a login token for email and delivers the magic link.
// When registration is closed an unknown email is rejected before any token
// exists. The token is returned for callers that deliver it themselves.
func (s *AuthService) RequestLogin(ctx context.Context, email string, client Client) (string, error) {
	email, err := common.NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	if !s.allow(ctx, "login:email:"+email) {
		return "", common.ErrRateLimited
	}
	if client.IP != "" && !s.allow(ctx, "login:ip:"+client.IP) {
		return "", common.ErrRateLimited
	}

	_, err = s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		open, err := registrationOpen(ctx, s.repomanager.SystemSettings(s.db), s.registrationDefault)
		if err != nil {
			return "", err
		}
		if !open {
			return "", common.ErrRegistrationClosed
		}
	case err != nil:
		return "", err
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrorInternal
	}
	now := s.now().UTC()
	lt := &models.LoginToken{
		Token:     token,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.loginTokenTTL),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}
	if err := s.repomanager.LoginTokens(s.db).Create(ctx, lt); err != nil {
		return "", fmt.Errorf("error creating login token: %w", err)
	}

	if err := s.sender.SendLoginLink(ctx, email, mailer.Link(s.baseURL, VerifyPath, token), lt.ExpiresAt); err != nil {
		return "", fmt.Errorf("error sending login link: %w", err)
	}
	s.logger.Info(ctx, "login token issued", "email", email, "ip", client.IP)
	return token, nil
}

// VerifyLogin consumes a login token and opens a session. The token is
// single use: a second call with it fails with common.ErrInvalidToken.
func (s *AuthService) VerifyLogin(ctx context.Context, token string, client Client) (*Login, error) {
	now := s.now().UTC()
	email, err := s.repomanager.LoginTokens(s.db).Consume(ctx, token, now)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	user, err := s.findOrCreateUser(ctx, email, now)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}
	if err := s.repomanager.Users(s.db).UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return s.CreateSession(ctx, user, client)
}

// findOrCreateUser only creates users while registration is open. It relies
// on the email unique constraint: losing a creation race yields
// common.ErrUserExists and the winner's row is fetched.
func (s *AuthService) findOrCreateUser(ctx context.Context, email string, now time.Time) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	// Registration may have closed after the link was issued.
	open, err := registrationOpen(ctx, s.repomanager.SystemSettings(s.db), s.registrationDefault)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, common.ErrRegistrationClosed
	}

	u, err = repo.Create(ctx, &models.User{Email: email, IsActive: true, CreatedAt: now})
	if errors.Is(err, common.ErrUserExists) {
		return repo.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user registered", "user_id", u.ID, "email", email)
	return u, nil
}

// CreateSession stores a session for user and signs its cookie.
func (s *AuthService) CreateSession(ctx context.Context, user *models.User, client Client) (*Login, error) {
	id, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	now := s.now().UTC()
	sess := &models.Session{
		SessionID: id,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	cookie, err := s.signer.Issue(id, user.ID, sess.ExpiresAt)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Login{User: user, SessionID: id, Cookie: cookie, ExpiresAt: sess.ExpiresAt}, nil
}

// ResolveSession maps a session cookie to the live session behind it.
// Bad signatures, expiry, logout and deactivated users all yield
// common.ErrInvalidToken.
func (s *AuthService) ResolveSession(ctx context.Context, cookie string) (*models.SessionInfo, error) {
	claims, err := s.signer.Parse(cookie)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	info, err := s.repomanager.Sessions(s.db).Resolve(ctx, claims.SessionID, s.now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	if info.UserID != claims.UserID {
		return nil, common.ErrInvalidToken
	}
	return info, nil
}

// Logout deletes the session. It reports false when the session was
// already gone.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (bool, error) {
	return s.repomanager.Sessions(s.db).Delete(ctx, sessionID)
}
