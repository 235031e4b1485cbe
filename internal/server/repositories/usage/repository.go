// Package usage persists per-user daily usage counters. Every mutation is a
// single atomic statement keyed on (user_id, date).
package usage

import (
	"context"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	// Get returns the count for a day, 0 when no row exists.
	Get(ctx context.Context, userID int64, date string) (int, error)
	// Increment adds one and returns the new count.
	Increment(ctx context.Context, userID int64, date string) (int, error)
	// IncrementBelow adds one only while the count is below limit. It
	// returns the new count and whether the increment happened.
	IncrementBelow(ctx context.Context, userID int64, date string, limit int) (int, bool, error)
	// Decrement removes one, never going below zero, and returns the new count.
	Decrement(ctx context.Context, userID int64, date string) (int, error)
	// History lists rows on or after since, newest first.
	History(ctx context.Context, userID int64, since string) ([]models.DailyUsage, error)
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
	// TotalForDate sums every user's count for a day.
	TotalForDate(ctx context.Context, date string) (int, error)
}
