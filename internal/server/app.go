// Package server wires configuration, storage, services and the HTTP API
// together and runs the service until it is signalled to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/cryptox"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/netx"
	"github.com/dmitrijs2005/photocaption/internal/server/auth"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
	"github.com/dmitrijs2005/photocaption/internal/server/httpapi"
	"github.com/dmitrijs2005/photocaption/internal/server/mailer"
	"github.com/dmitrijs2005/photocaption/internal/server/ratelimit"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	backend *storage.Backend
	redis   *redis.Client
	handler http.Handler
}

// Services builds every service over an open, migrated backend. The CLI
// uses it as well as the server.
func Services(b *storage.Backend, cfg *config.Config, limiter ratelimit.Limiter, logger logging.Logger) (httpapi.Services, error) {
	rm := repomanager.NewSQLRepositoryManager(b.Dialect, logger)

	signer, err := auth.NewSigner([]byte(cfg.SecretKey))
	if err != nil {
		return httpapi.Services{}, err
	}
	quota, err := services.NewQuotaService(b.DB, rm, cfg)
	if err != nil {
		return httpapi.Services{}, err
	}
	logs, err := services.NewQueryLogService(b.DB, rm, cfg)
	if err != nil {
		return httpapi.Services{}, err
	}
	sender := mailer.NewLogSender(logger)

	return httpapi.Services{
		Auth:      services.NewAuthService(b.DB, rm, cfg, signer, limiter, sender, logger),
		Invites:   services.NewInviteService(b.DB, rm, cfg, sender, logger),
		Quota:     quota,
		Settings:  services.NewSettingsService(b.DB, rm),
		Admin:     services.NewAdminService(b.DB, rm, cfg, quota, logger),
		QueryLogs: logs,
	}, nil
}

// OpenStorage connects to the configured backend and brings its schema to
// the latest version. A migration failure is returned and the backend
// closed: the server must not run on a stale schema.
func OpenStorage(ctx context.Context, cfg *config.Config, logger logging.Logger) (*storage.Backend, error) {
	b, err := storage.Open(ctx, storage.Options{
		Kind:      cfg.DatabaseBackend,
		DSN:       cfg.DatabaseDSN,
		AuthToken: cfg.DatabaseAuthToken,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewSQLRepositoryManager(b.Dialect, logger)
	if err := rm.RunMigrations(ctx, b.DB); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return b, nil
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	b, err := OpenStorage(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger, backend: b}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if c.RedisAddr != "" && c.LoginRateLimit > 0 {
		app.redis, err = ratelimit.NewRedisClient(c.RedisAddr, c.RedisPassword)
		if err != nil {
			app.Close()
			return nil, err
		}
		limiter, err = ratelimit.NewFixedWindowLimiter(app.redis, c.RedisPrefix, c.LoginRateLimit, c.LoginRateWindow)
		if err != nil {
			app.Close()
			return nil, err
		}
	} else {
		logger.Warn(ctx, "login rate limiting disabled: no redis configured")
	}

	svc, err := Services(b, c, limiter, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	sealer, err := cryptox.NewSealerFromPassphrase(c.SettingsKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	proxies, err := netx.NewTrustedProxies(c.TrustedProxies)
	if err != nil {
		app.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	app.handler = httpapi.NewRouter(svc, sealer, httpapi.Options{
		SecureCookies:  c.SecureCookies,
		TrustedProxies: proxies,
	}, logger)
	return app, nil
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	_ = app.backend.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "HTTP server listening", "addr", srv.Addr, "backend", app.backend.Dialect.Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or the process is signalled.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	wg.Wait()

	app.Close()
}
