// Package users persists user accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/server/models"
)

type Repository interface {
	// Create inserts a user. A duplicate email yields common.ErrUserExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List returns every user with tier name and usage on date, newest first.
	List(ctx context.Context, date string) ([]models.UserSummary, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetAdmin(ctx context.Context, id int64, admin bool) error
	SetTier(ctx context.Context, id int64, tierID *int64) error
	Delete(ctx context.Context, id int64) error
}
