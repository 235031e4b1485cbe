package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/services"
	"github.com/gin-gonic/gin"
)

// writeError maps service errors onto statuses. Unknown errors are logged
// and reported as a bare 500.
func (a *api) writeError(c *gin.Context, err error) {
	var qe *services.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": common.ErrQuotaExceeded.Error(),
			"used":  qe.Used,
			"limit": qe.Limit,
		})
	case errors.Is(err, common.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrInvalidToken.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
	case errors.Is(err, common.ErrRegistrationClosed):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrorAlreadyExists), errors.Is(err, common.ErrTierInUse):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorInvalidTier):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		a.logger.Error(c.Request.Context(), "request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
