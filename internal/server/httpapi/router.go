// Package httpapi exposes the services over a small JSON API built on gin.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/photocaption/internal/cryptox"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/netx"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Services bundles the business logic the handlers call.
type Services struct {
	Auth      *services.AuthService
	Invites   *services.InviteService
	Quota     *services.QuotaService
	Settings  *services.SettingsService
	Admin     *services.AdminService
	QueryLogs *services.QueryLogService
}

// Options tune transport behaviour.
type Options struct {
	SecureCookies  bool
	TrustedProxies *netx.TrustedProxies
}

type api struct {
	svc    Services
	sealer *cryptox.Sealer
	opts   Options
	logger logging.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Services, sealer *cryptox.Sealer, opts Options, logger logging.Logger) *gin.Engine {
	a := &api{svc: svc, sealer: sealer, opts: opts, logger: logger.With("module", "http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(a.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/auth/login", a.requestLogin)
	r.GET(services.VerifyPath, a.verifyLogin)
	r.GET(services.AcceptPath, a.acceptInvite)
	r.POST("/auth/logout", a.requireSession(), a.logout)

	me := r.Group("/api", a.requireSession())
	me.GET("/me", a.me)
	me.GET("/quota", a.quota)
	me.POST("/usage/consume", a.consume)
	me.POST("/usage/complete", a.complete)
	me.GET("/usage/history", a.usageHistory)

	me.GET("/settings", a.listSettings)
	me.DELETE("/settings", a.deleteAllSettings)
	me.GET("/settings/:category/:key", a.getSetting)
	me.PUT("/settings/:category/:key", a.putSetting)
	me.DELETE("/settings/:category/:key", a.deleteSetting)

	admin := r.Group("/api/admin", a.requireSession(), a.requireAdmin())
	admin.GET("/users", a.listUsers)
	admin.POST("/users", a.createUser)
	admin.PATCH("/users/:id", a.updateUser)
	admin.DELETE("/users/:id", a.deleteUser)
	admin.POST("/users/:id/revoke", a.revokeSessions)
	admin.GET("/tiers", a.listTiers)
	admin.POST("/tiers", a.createTier)
	admin.PUT("/tiers/:id", a.updateTier)
	admin.DELETE("/tiers/:id", a.deleteTier)
	admin.GET("/invites", a.pendingInvites)
	admin.POST("/invites", a.createInvite)
	admin.GET("/registration", a.getRegistration)
	admin.PUT("/registration", a.setRegistration)
	admin.GET("/stats", a.stats)
	admin.POST("/gc", a.gc)

	return r
}

func (a *api) client(c *gin.Context) services.Client {
	return services.Client{
		IP:        netx.ClientIP(c.Request, a.opts.TrustedProxies),
		UserAgent: netx.UserAgent(c.Request),
	}
}
