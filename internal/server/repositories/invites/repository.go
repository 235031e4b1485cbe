// Package invites persists invite tokens. Used invites are never deleted.
package invites

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, inv *models.InviteToken) error
	// GetValid returns an unused, unexpired invite or common.ErrorNotFound.
	GetValid(ctx context.Context, token string, now time.Time) (*models.InviteToken, error)
	// Consume marks a valid invite used by userID. It reports false when the
	// invite was already used, expired or unknown.
	Consume(ctx context.Context, token string, userID int64, now time.Time) (bool, error)
	// Pending lists unused, unexpired invites, newest first.
	Pending(ctx context.Context, now time.Time) ([]models.InviteToken, error)
	// ExpireSentBy expires pending invites sent by userID.
	ExpireSentBy(ctx context.Context, userID int64, now time.Time) (int64, error)
}
