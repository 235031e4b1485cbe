package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const k = 2
	var wg sync.WaitGroup
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.admin.CreateUser(ctx, "same@x.io", false, nil)
		}(i)
	}
	wg.Wait()

	var ok, exists int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, common.ErrUserExists):
			exists++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exists)
	assert.Equal(t, 1, countRows(t, e, "users"))
}

func TestCreateUser_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.admin.CreateUser(ctx, "nope", false, nil)
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = e.admin.CreateUser(ctx, "a@x.io", false, ptr(int64(42)))
	assert.ErrorIs(t, err, common.ErrorInvalidTier)

	u, err := e.admin.CreateUser(ctx, "A@x.io", true, ptr(proTier))
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", u.Email)
	assert.True(t, u.IsAdmin)
	_, err = e.admin.CreateUser(ctx, "a@X.IO", false, nil)
	assert.ErrorIs(t, err, common.ErrUserExists, "emails compare after normalisation")
}

func TestListUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.admin.CreateUser(ctx, "a@x.io", false, ptr(proTier))
	require.NoError(t, err)
	_, err = e.admin.CreateUser(ctx, "b@x.io", false, nil)
	require.NoError(t, err)
	_, err = e.quota.IncrementUsage(ctx, a.ID)
	require.NoError(t, err)

	list, err := e.admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byEmail := map[string]int{}
	for i, u := range list {
		byEmail[u.Email] = i
	}
	pa := list[byEmail["a@x.io"]]
	assert.Equal(t, "Pro", pa.TierName)
	assert.Equal(t, 1, pa.UsageToday)
	assert.Equal(t, "", list[byEmail["b@x.io"]].TierName)

	total, err := e.admin.UsageToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestAssignTierAndFlags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, err := e.admin.CreateUser(ctx, "a@x.io", false, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, e.admin.AssignTier(ctx, u.ID, ptr(int64(77))), common.ErrorInvalidTier)
	require.NoError(t, e.admin.AssignTier(ctx, u.ID, ptr(unlimitedTier)))
	require.NoError(t, e.admin.SetAdmin(ctx, u.ID, true))

	got, err := e.admin.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	require.NotNil(t, got.TierID)
	assert.Equal(t, unlimitedTier, *got.TierID)

	assert.ErrorIs(t, e.admin.SetAdmin(ctx, 999, true), common.ErrorNotFound)
	assert.ErrorIs(t, e.admin.SetActive(ctx, 999, true), common.ErrorNotFound)
}

func TestDeleteUser_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.admin.CreateUser(ctx, "gone@x.io", true, nil)
	require.NoError(t, err)
	other, err := e.admin.CreateUser(ctx, "stay@x.io", false, nil)
	require.NoError(t, err)

	_, err = e.auth.CreateSession(ctx, u, testClient)
	require.NoError(t, err)
	_, err = e.auth.CreateSession(ctx, other, testClient)
	require.NoError(t, err)
	require.NoError(t, e.settings.Set(ctx, u.ID, "c", "k", "v", false))
	_, err = e.quota.IncrementUsage(ctx, u.ID)
	require.NoError(t, err)
	inv, err := e.invites.Create(ctx, InviteInput{Email: "friend@x.io", InvitedBy: &u.ID})
	require.NoError(t, err)

	require.NoError(t, e.admin.DeleteUser(ctx, u.ID))

	_, err = e.admin.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 1, countRows(t, e, "user_sessions"))
	assert.Equal(t, 0, countRows(t, e, "user_settings"))
	assert.Equal(t, 0, countRows(t, e, "daily_usage"))

	// The invite row is kept for audit but can no longer be redeemed.
	assert.Equal(t, 1, countRows(t, e, "invite_tokens"))
	_, err = e.invites.Accept(ctx, inv.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	assert.ErrorIs(t, e.admin.DeleteUser(ctx, u.ID), common.ErrorNotFound)
}

func TestRevokeSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, err := e.admin.CreateUser(ctx, "a@x.io", false, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.auth.CreateSession(ctx, u, testClient)
		require.NoError(t, err)
	}

	n, err := e.admin.RevokeSessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGC(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, err := e.admin.CreateUser(ctx, "a@x.io", false, nil)
	require.NoError(t, err)

	used, err := e.auth.RequestLogin(ctx, "a@x.io", testClient)
	require.NoError(t, err)
	_, err = e.auth.VerifyLogin(ctx, used, testClient)
	require.NoError(t, err)
	_, err = e.auth.RequestLogin(ctx, "a@x.io", testClient)
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	_, err = e.auth.CreateSession(ctx, u, testClient)
	require.NoError(t, err)
	e.clock.Advance(7*24*time.Hour - time.Minute)

	res, err := e.admin.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LoginTokens, "consumed tokens are kept")
	assert.Equal(t, int64(1), res.Sessions)
	assert.Equal(t, 1, countRows(t, e, "login_tokens"))
	assert.Equal(t, 1, countRows(t, e, "user_sessions"))
}

func TestRegistrationToggle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	open, err := e.admin.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open, "config default")

	require.NoError(t, e.admin.SetRegistrationOpen(ctx, false))
	open, err = e.admin.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}
