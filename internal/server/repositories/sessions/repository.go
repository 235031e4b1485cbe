// Package sessions persists server-side login sessions.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	// Resolve returns the session joined with its user. Expired sessions and
	// sessions of inactive users are common.ErrorNotFound.
	Resolve(ctx context.Context, sessionID string, now time.Time) (*models.SessionInfo, error)
	// Delete reports whether a session was removed.
	Delete(ctx context.Context, sessionID string) (bool, error)
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
