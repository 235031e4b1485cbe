// Package logintokens persists single-use magic-link tokens.
package logintokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.LoginToken) error
	Get(ctx context.Context, token string) (*models.LoginToken, error)
	// Consume marks an unused, unexpired token used and returns its email.
	// Anything else, including a second consume, is common.ErrorNotFound.
	Consume(ctx context.Context, token string, now time.Time) (string, error)
	// DeleteExpired removes unused tokens that expired before now. Consumed
	// tokens are kept.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
