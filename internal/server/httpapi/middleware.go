package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionKey      = "session"
	requestIDHeader = "X-Request-ID"
)

// requestLogger tags the request context with a request id and logs one
// line per request.
func (a *api) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithAttrs(c.Request.Context(), "request_id", id))

		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			a.logger.Warn(c.Request.Context(), "request", args...)
			return
		}
		a.logger.Info(c.Request.Context(), "request", args...)
	}
}

// sessionToken reads the session cookie, falling back to a bearer token for
// non-browser clients such as the extension.
func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(common.SessionCookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (a *api) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		info, err := a.svc.Auth.ResolveSession(c.Request.Context(), token)
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.Set(sessionKey, info)
		c.Request = c.Request.WithContext(logging.WithAttrs(c.Request.Context(), "user_id", info.UserID))
		c.Next()
	}
}

func (a *api) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func session(c *gin.Context) *models.SessionInfo {
	return c.MustGet(sessionKey).(*models.SessionInfo)
}
