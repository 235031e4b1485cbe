package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (a *api) me(c *gin.Context) {
	info := session(c)
	st, err := a.svc.Quota.CheckQuota(c.Request.Context(), info.UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  info.UserID,
		"email":    info.Email,
		"is_admin": info.IsAdmin,
		"quota":    quotaJSON(st.Allowed, st.Used, st.Limit, st.Remaining, st.TierName),
	})
}

func quotaJSON(allowed bool, used, limit, remaining int, tier string) gin.H {
	return gin.H{"allowed": allowed, "used": used, "limit": limit, "remaining": remaining, "tier": tier}
}

func (a *api) quota(c *gin.Context) {
	st, err := a.svc.Quota.CheckQuota(c.Request.Context(), session(c).UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotaJSON(st.Allowed, st.Used, st.Limit, st.Remaining, st.TierName))
}

// consume reserves one generation before the caller starts it.
func (a *api) consume(c *gin.Context) {
	st, err := a.svc.Quota.Consume(c.Request.Context(), session(c).UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := quotaJSON(st.Allowed, st.Used, st.Limit, st.Remaining, st.TierName)
	out["date"] = st.Date
	c.JSON(http.StatusOK, out)
}

type completeRequest struct {
	Source         string `json:"source"`
	DurationMs     int64  `json:"duration_ms"`
	ResponseLength int    `json:"response_length"`
	Success        bool   `json:"success"`
	// Date is the "date" returned by consume. Refunds need it.
	Date string `json:"date"`
}

// complete closes a reservation: failures are refunded, successes logged.
func (a *api) complete(c *gin.Context) {
	var body completeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	ctx := c.Request.Context()
	info := session(c)

	if !body.Success {
		if body.Date == "" {
			badRequest(c, "date is required to refund a reservation")
			return
		}
		if err := a.svc.Quota.Refund(ctx, info.UserID, body.Date); err != nil {
			a.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	uid := info.UserID
	l, err := a.svc.QueryLogs.Record(ctx, services.QueryRecord{
		Source:         body.Source,
		UserID:         &uid,
		Email:          info.Email,
		Duration:       time.Duration(body.DurationMs) * time.Millisecond,
		ResponseLength: body.ResponseLength,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": l.ID})
}

func (a *api) usageHistory(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	rows, err := a.svc.Quota.UsageForUser(c.Request.Context(), session(c).UserID, days)
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{"date": r.Date, "count": r.UsageCount})
	}
	c.JSON(http.StatusOK, gin.H{"usage": out})
}
