package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/gin-gonic/gin"
)

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

type userSummaryResponse struct {
	userResponse
	TierName   string `json:"tier_name,omitempty"`
	UsageToday int    `json:"usage_today"`
}

func (a *api) listUsers(c *gin.Context) {
	list, err := a.svc.Admin.ListUsers(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]userSummaryResponse, 0, len(list))
	for i := range list {
		out = append(out, userSummaryResponse{
			userResponse: toUser(&list[i].User),
			TierName:     list[i].TierName,
			UsageToday:   list[i].UsageToday,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type createUserRequest struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	TierID  *int64 `json:"tier_id"`
}

func (a *api) createUser(c *gin.Context) {
	var body createUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	u, err := a.svc.Admin.CreateUser(c.Request.Context(), body.Email, body.IsAdmin, body.TierID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUser(u))
}

type updateUserRequest struct {
	IsActive  *bool  `json:"is_active"`
	IsAdmin   *bool  `json:"is_admin"`
	TierID    *int64 `json:"tier_id"`
	ClearTier bool   `json:"clear_tier"`
}

func (a *api) updateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body updateUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if id == session(c).UserID && ((body.IsActive != nil && !*body.IsActive) || (body.IsAdmin != nil && !*body.IsAdmin)) {
		badRequest(c, "cannot demote or deactivate yourself")
		return
	}

	ctx := c.Request.Context()
	if body.IsActive != nil {
		if err := a.svc.Admin.SetActive(ctx, id, *body.IsActive); err != nil {
			a.writeError(c, err)
			return
		}
	}
	if body.IsAdmin != nil {
		if err := a.svc.Admin.SetAdmin(ctx, id, *body.IsAdmin); err != nil {
			a.writeError(c, err)
			return
		}
	}
	if body.TierID != nil || body.ClearTier {
		if err := a.svc.Admin.AssignTier(ctx, id, body.TierID); err != nil {
			a.writeError(c, err)
			return
		}
	}

	u, err := a.svc.Admin.GetUser(ctx, id)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(u))
}

func (a *api) deleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if id == session(c).UserID {
		badRequest(c, "cannot delete yourself")
		return
	}
	if err := a.svc.Admin.DeleteUser(c.Request.Context(), id); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) revokeSessions(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	n, err := a.svc.Admin.RevokeSessions(c.Request.Context(), id)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

type tierRequest struct {
	Name        string  `json:"name"`
	DailyLimit  *int    `json:"daily_limit"`
	Description *string `json:"description"`
}

func (t tierRequest) input() (services.TierInput, bool) {
	if t.DailyLimit == nil {
		return services.TierInput{}, false
	}
	return services.TierInput{Name: t.Name, DailyLimit: *t.DailyLimit, Description: t.Description}, true
}

type tierResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DailyLimit  int       `json:"daily_limit"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTier(t *models.Tier) tierResponse {
	return tierResponse{
		ID:          t.ID,
		Name:        t.Name,
		DailyLimit:  t.DailyLimit,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (a *api) listTiers(c *gin.Context) {
	list, err := a.svc.Quota.ListTiers(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]tierResponse, 0, len(list))
	for i := range list {
		out = append(out, toTier(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tiers": out})
}

func (a *api) createTier(c *gin.Context) {
	var body tierRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	in, ok := body.input()
	if !ok {
		badRequest(c, "daily_limit is required")
		return
	}
	t, err := a.svc.Quota.CreateTier(c.Request.Context(), in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTier(t))
}

func (a *api) updateTier(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body tierRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	in, ok := body.input()
	if !ok {
		badRequest(c, "daily_limit is required")
		return
	}
	t, err := a.svc.Quota.UpdateTier(c.Request.Context(), id, in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTier(t))
}

func (a *api) deleteTier(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := a.svc.Quota.DeleteTier(c.Request.Context(), id); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type inviteRequest struct {
	Email   string  `json:"email"`
	TierID  *int64  `json:"tier_id"`
	Message *string `json:"message"`
}

type inviteResponse struct {
	Email     string    `json:"email"`
	TierID    *int64    `json:"tier_id,omitempty"`
	Message   *string   `json:"message,omitempty"`
	InvitedBy *int64    `json:"invited_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toInvite(inv *models.InviteToken) inviteResponse {
	return inviteResponse{
		Email:     inv.Email,
		TierID:    inv.TierID,
		Message:   inv.PersonalMessage,
		InvitedBy: inv.InvitedBy,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	}
}

func (a *api) createInvite(c *gin.Context) {
	var body inviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	uid := session(c).UserID
	inv, err := a.svc.Invites.Create(c.Request.Context(), services.InviteInput{
		Email:     body.Email,
		InvitedBy: &uid,
		TierID:    body.TierID,
		Message:   body.Message,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvite(inv))
}

func (a *api) pendingInvites(c *gin.Context) {
	list, err := a.svc.Invites.Pending(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]inviteResponse, 0, len(list))
	for i := range list {
		out = append(out, toInvite(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"invites": out})
}

func (a *api) getRegistration(c *gin.Context) {
	open, err := a.svc.Admin.RegistrationOpen(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": open})
}

func (a *api) setRegistration(c *gin.Context) {
	var body struct {
		Open *bool `json:"open"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Open == nil {
		badRequest(c, "open is required")
		return
	}
	if err := a.svc.Admin.SetRegistrationOpen(c.Request.Context(), *body.Open); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": *body.Open})
}

func (a *api) stats(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := a.svc.QueryLogs.Stats(ctx)
	if err != nil {
		a.writeError(c, err)
		return
	}
	usage, err := a.svc.Admin.UsageToday(ctx)
	if err != nil {
		a.writeError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("recent", "20"))
	recent, err := a.svc.QueryLogs.Recent(ctx, limit)
	if err != nil {
		a.writeError(c, err)
		return
	}
	logs := make([]gin.H, 0, len(recent))
	for _, l := range recent {
		logs = append(logs, gin.H{
			"id":                 l.ID,
			"source":             l.Source,
			"user_id":            l.UserID,
			"email":              l.Email,
			"processing_time_ms": l.ProcessingTimeMs,
			"response_length":    l.ResponseLength,
			"timestamp":          l.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"total":             st.Total,
		"today":             st.Today,
		"avg_processing_ms": st.AvgProcessingMs,
		"by_source":         st.BySource,
		"usage_today":       usage,
		"recent":            logs,
	})
}

func (a *api) gc(c *gin.Context) {
	res, err := a.svc.Admin.GC(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"login_tokens": res.LoginTokens, "sessions": res.Sessions})
}
