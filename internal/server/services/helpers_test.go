package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/auth"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/ratelimit"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/dmitrijs2005/photocaption/internal/server/storage/storagetest"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To      string
	Link    string
	Message *string
}

type recordingSender struct {
	mu      sync.Mutex
	logins  []sentMail
	invites []sentMail
	err     error
}

func (r *recordingSender) SendLoginLink(_ context.Context, to, link string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, sentMail{To: to, Link: link})
	return r.err
}

func (r *recordingSender) SendInvite(_ context.Context, to, link string, message *string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites = append(r.invites, sentMail{To: to, Link: link, Message: message})
	return r.err
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	b      *storage.Backend
	rm     *repomanager.SQLRepositoryManager
	cfg    *config.Config
	clock  *testClock
	sender *recordingSender

	auth     *AuthService
	invites  *InviteService
	quota    *QuotaService
	settings *SettingsService
	admin    *AdminService
	logs     *QueryLogService
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BaseURL = "https://caption.test"
	return cfg
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWith(t, newTestConfig(), nil)
}

func newEnvWith(t *testing.T, cfg *config.Config, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	return newEnvOn(t, storagetest.NewSQLite(t), cfg, limiter)
}

// newEnvOn wires every service over an already migrated backend.
func newEnvOn(t *testing.T, b *storage.Backend, cfg *config.Config, limiter ratelimit.Limiter) *testEnv {
	t.Helper()

	rm := repomanager.NewSQLRepositoryManager(b.Dialect, logging.Nop())
	clock := &testClock{t: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
	sender := &recordingSender{}

	signer, err := auth.NewSigner([]byte("test-secret"))
	require.NoError(t, err)
	signer.WithClock(clock.Now)

	quota, err := NewQuotaService(b.DB, rm, cfg)
	require.NoError(t, err)
	quota.now = clock.Now

	logs, err := NewQueryLogService(b.DB, rm, cfg)
	require.NoError(t, err)
	logs.now = clock.Now

	e := &testEnv{
		b:        b,
		rm:       rm,
		cfg:      cfg,
		clock:    clock,
		sender:   sender,
		auth:     NewAuthService(b.DB, rm, cfg, signer, limiter, sender, logging.Nop()),
		invites:  NewInviteService(b.DB, rm, cfg, sender, logging.Nop()),
		quota:    quota,
		settings: NewSettingsService(b.DB, rm),
		admin:    NewAdminService(b.DB, rm, cfg, quota, logging.Nop()),
		logs:     logs,
	}
	e.auth.now = clock.Now
	e.invites.now = clock.Now
	e.settings.now = clock.Now
	e.admin.now = clock.Now
	return e
}

func ptr[T any](v T) *T { return &v }
