package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email string `json:"email"`
}

type userResponse struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	IsAdmin   bool       `json:"is_admin"`
	TierID    *int64     `json:"tier_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func toUser(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		TierID:    u.TierID,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// requestLogin always answers 202 for a well-formed request so callers
// cannot probe which emails have accounts, except when registration is
// closed, which the login page has to explain.
func (a *api) requestLogin(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if _, err := a.svc.Auth.RequestLogin(c.Request.Context(), body.Email, a.client(c)); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (a *api) setSessionCookie(c *gin.Context, login *services.Login) {
	maxAge := int(time.Until(login.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.SessionCookieName, login.Cookie, maxAge, "/", "", a.opts.SecureCookies, true)
}

func (a *api) verifyLogin(c *gin.Context) {
	login, err := a.svc.Auth.VerifyLogin(c.Request.Context(), c.Query("token"), a.client(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.setSessionCookie(c, login)
	c.JSON(http.StatusOK, gin.H{"user": toUser(login.User), "token": login.Cookie, "expires_at": login.ExpiresAt})
}

func (a *api) acceptInvite(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := a.svc.Invites.Accept(ctx, c.Query("token"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	login, err := a.svc.Auth.CreateSession(ctx, user, a.client(c))
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.setSessionCookie(c, login)
	c.JSON(http.StatusOK, gin.H{"user": toUser(login.User), "token": login.Cookie, "expires_at": login.ExpiresAt})
}

func (a *api) logout(c *gin.Context) {
	if _, err := a.svc.Auth.Logout(c.Request.Context(), session(c).SessionID); err != nil {
		a.writeError(c, err)
		return
	}
	c.SetCookie(common.SessionCookieName, "", -1, "/", "", a.opts.SecureCookies, true)
	c.Status(http.StatusNoContent)
}
