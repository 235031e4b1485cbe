package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin, err := e.admin.CreateUser(ctx, "admin@x.io", true, nil)
	require.NoError(t, err)

	inv, err := e.invites.Create(ctx, InviteInput{
		Email:     "Friend@X.io",
		InvitedBy: &admin.ID,
		TierID:    ptr(proTier),
		Message:   ptr("  come along  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "friend@x.io", inv.Email)
	assert.Equal(t, e.clock.Now().Add(7*24*time.Hour), inv.ExpiresAt)
	require.NotNil(t, inv.PersonalMessage)
	assert.Equal(t, "come along", *inv.PersonalMessage)

	require.Len(t, e.sender.invites, 1)
	u, err := url.Parse(e.sender.invites[0].Link)
	require.NoError(t, err)
	assert.Equal(t, AcceptPath, u.Path)
	assert.Equal(t, inv.Token, u.Query().Get("token"))

	_, err = e.invites.Create(ctx, InviteInput{Email: "x@x.io", TierID: ptr(int64(99))})
	assert.ErrorIs(t, err, common.ErrorInvalidTier)

	inv, err = e.invites.Create(ctx, InviteInput{Email: "y@x.io", Message: ptr("   ")})
	require.NoError(t, err)
	assert.Nil(t, inv.PersonalMessage)
}

func TestInviteAccept_UnlimitedTier(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inv, err := e.invites.Create(ctx, InviteInput{Email: "vip@x.io", TierID: ptr(unlimitedTier)})
	require.NoError(t, err)

	user, err := e.invites.Accept(ctx, inv.Token)
	require.NoError(t, err)
	require.NotNil(t, user.TierID)
	assert.Equal(t, unlimitedTier, *user.TierID)

	st, err := e.quota.CheckQuota(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, st.Allowed)
	assert.Equal(t, -1, st.Limit)

	_, err = e.invites.Accept(ctx, inv.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "invites are single use")

	pending, err := e.invites.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInviteAccept_ExistingUserGetsTier(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing, err := e.admin.CreateUser(ctx, "old@x.io", false, nil)
	require.NoError(t, err)

	inv, err := e.invites.Create(ctx, InviteInput{Email: "old@x.io", TierID: ptr(proTier)})
	require.NoError(t, err)
	user, err := e.invites.Accept(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)

	tier, err := e.quota.GetTierForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pro", tier.Name)
	assert.Equal(t, 1, countRows(t, e, "users"))
}

func TestInviteAccept_DeletedTierLeavesInviteUnused(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tier, err := e.quota.CreateTier(ctx, TierInput{Name: "Beta", DailyLimit: 20})
	require.NoError(t, err)

	inv, err := e.invites.Create(ctx, InviteInput{Email: "b@x.io", TierID: &tier.ID})
	require.NoError(t, err)
	require.NoError(t, e.quota.DeleteTier(ctx, tier.ID))

	_, err = e.invites.Accept(ctx, inv.Token)
	require.ErrorIs(t, err, common.ErrorInvalidTier)
	assert.Equal(t, 0, countRows(t, e, "users"))

	got, err := e.rm.Invites(e.b.DB).GetValid(ctx, inv.Token, e.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, got.UsedAt)
}

func TestInviteAccept_ExpiredOrInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inv, err := e.invites.Create(ctx, InviteInput{Email: "late@x.io"})
	require.NoError(t, err)
	e.clock.Advance(8 * 24 * time.Hour)
	_, err = e.invites.Accept(ctx, inv.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	u, err := e.admin.CreateUser(ctx, "off@x.io", false, nil)
	require.NoError(t, err)
	require.NoError(t, e.admin.SetActive(ctx, u.ID, false))
	inv, err = e.invites.Create(ctx, InviteInput{Email: "off@x.io"})
	require.NoError(t, err)
	_, err = e.invites.Accept(ctx, inv.Token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestInvitePending_NewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.invites.Create(ctx, InviteInput{Email: "a@x.io"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	second, err := e.invites.Create(ctx, InviteInput{Email: "b@x.io"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	used, err := e.invites.Create(ctx, InviteInput{Email: "c@x.io"})
	require.NoError(t, err)
	_, err = e.invites.Accept(ctx, used.Token)
	require.NoError(t, err)

	pending, err := e.invites.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.Token, pending[0].Token)
	assert.Equal(t, first.Token, pending[1].Token)
}
