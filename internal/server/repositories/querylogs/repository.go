// Package querylogs persists the append-only generation request log.
package querylogs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, l *models.QueryLog) error
	// Stats aggregates the whole log; Today counts entries at or after dayStart.
	Stats(ctx context.Context, dayStart time.Time) (*models.QueryStats, error)
	Recent(ctx context.Context, limit int) ([]models.QueryLog, error)
}
