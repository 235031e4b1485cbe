package syssettings

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	b := storagetest.NewSQLite(t)
	repo := NewSQLRepository(b.DB, b.Dialect)
	ctx := context.Background()

	_, err := repo.Get(ctx, common.SettingRegistrationOpen)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Set(ctx, common.SettingRegistrationOpen, "false", time.Now()))
	require.NoError(t, repo.Set(ctx, common.SettingRegistrationOpen, "true", time.Now()))

	v, err := repo.Get(ctx, common.SettingRegistrationOpen)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	assert.Equal(t, 1, storagetest.Count(t, b.DB, "system_settings"))
}
