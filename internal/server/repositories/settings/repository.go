// Package settings persists per-user key/value settings namespaced by
// category. The encrypted flag is stored and returned as given.
package settings

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, userID int64, category, key string) (*models.UserSetting, error)
	// List returns a user's settings, all categories when category is empty.
	List(ctx context.Context, userID int64, category string) ([]models.UserSetting, error)
	// Set upserts; the last write wins.
	Set(ctx context.Context, s *models.UserSetting, now time.Time) error
	Delete(ctx context.Context, userID int64, category, key string) (bool, error)
	// DeleteAll removes a user's settings, all categories when category is empty.
	DeleteAll(ctx context.Context, userID int64, category string) (int64, error)
}
