package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_RoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := storagetest.InsertUser(t, e.b, "u@x.io")

	require.NoError(t, e.settings.Set(ctx, uid, "mastodon", "access_token", "v1:sealed", true))
	require.NoError(t, e.settings.Set(ctx, uid, "mastodon", "instance", "https://m.social", false))
	require.NoError(t, e.settings.Set(ctx, uid, "general", "tone", "casual", false))

	got, err := e.settings.Get(ctx, uid, "mastodon", "access_token")
	require.NoError(t, err)
	assert.Equal(t, "v1:sealed", got.Value)
	assert.True(t, got.Encrypted)

	all, err := e.settings.GetAll(ctx, uid, "mastodon")
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, s := range all {
		if s.Key == "access_token" {
			assert.True(t, s.Encrypted)
		} else {
			assert.False(t, s.Encrypted)
		}
	}

	everything, err := e.settings.GetAll(ctx, uid, "")
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func TestSettings_LastWriteWins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := storagetest.InsertUser(t, e.b, "u@x.io")

	require.NoError(t, e.settings.Set(ctx, uid, "c", "k", "one", true))
	require.NoError(t, e.settings.Set(ctx, uid, "c", "k", "two", false))

	got, err := e.settings.Get(ctx, uid, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Value)
	assert.False(t, got.Encrypted)
	assert.Equal(t, 1, countRows(t, e, "user_settings"))
}

func TestSettings_Delete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := storagetest.InsertUser(t, e.b, "u@x.io")

	require.NoError(t, e.settings.Set(ctx, uid, "c", "a", "1", false))
	require.NoError(t, e.settings.Set(ctx, uid, "c", "b", "2", false))
	require.NoError(t, e.settings.Set(ctx, uid, "d", "a", "3", false))

	ok, err := e.settings.Delete(ctx, uid, "c", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.settings.Delete(ctx, uid, "c", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.settings.Get(ctx, uid, "c", "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := e.settings.DeleteAll(ctx, uid, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = e.settings.DeleteAll(ctx, uid, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSettings_Validation(t *testing.T) {
	e := newEnv(t)
	err := e.settings.Set(context.Background(), 1, "", "k", "v", false)
	assert.ErrorIs(t, err, common.ErrorValidation)
	err = e.settings.Set(context.Background(), 1, "c", " ", "v", false)
	assert.ErrorIs(t, err, common.ErrorValidation)
}
