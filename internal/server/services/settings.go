package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/repomanager"
)

// SettingsService stores per-user settings. Values are kept exactly as
// given; sealing values marked encrypted is up to the caller.
type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager) *SettingsService {
	return &SettingsService{db: db, repomanager: m, now: time.Now}
}

func validKey(category, key string) error {
	if strings.TrimSpace(category) == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: category and key are required", common.ErrorValidation)
	}
	return nil
}

// Get returns common.ErrorNotFound when the setting is absent.
func (s *SettingsService) Get(ctx context.Context, userID int64, category, key string) (*models.UserSetting, error) {
	return s.repomanager.Settings(s.db).Get(ctx, userID, category, key)
}

// GetAll lists settings in category, or in every category when it is empty.
func (s *SettingsService) GetAll(ctx context.Context, userID int64, category string) ([]models.UserSetting, error) {
	return s.repomanager.Settings(s.db).List(ctx, userID, category)
}

func (s *SettingsService) Set(ctx context.Context, userID int64, category, key, value string, encrypted bool) error {
	if err := validKey(category, key); err != nil {
		return err
	}
	return s.repomanager.Settings(s.db).Set(ctx, &models.UserSetting{
		UserID:    userID,
		Category:  category,
		Key:       key,
		Value:     value,
		Encrypted: encrypted,
	}, s.now().UTC())
}

func (s *SettingsService) Delete(ctx context.Context, userID int64, category, key string) (bool, error) {
	return s.repomanager.Settings(s.db).Delete(ctx, userID, category, key)
}

func (s *SettingsService) DeleteAll(ctx context.Context, userID int64, category string) (int64, error) {
	return s.repomanager.Settings(s.db).DeleteAll(ctx, userID, category)
}
