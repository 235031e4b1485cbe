// Package tiers persists usage tiers.
package tiers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	// Create inserts a tier. A duplicate name yields common.ErrTierExists.
	Create(ctx context.Context, t *models.Tier) (*models.Tier, error)
	Update(ctx context.Context, t *models.Tier, now time.Time) error
	GetByID(ctx context.Context, id int64) (*models.Tier, error)
	GetByName(ctx context.Context, name string) (*models.Tier, error)
	// GetForUser returns the tier assigned to a user, or common.ErrorNotFound
	// when the user has none.
	GetForUser(ctx context.Context, userID int64) (*models.Tier, error)
	// List orders tiers by ascending limit with unlimited tiers last.
	List(ctx context.Context) ([]models.Tier, error)
	// Delete removes a tier no user references. It fails with
	// common.ErrTierInUse otherwise.
	Delete(ctx context.Context, id int64) error
}
