package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Seeded tiers.
const (
	freeTier      int64 = 1
	proTier       int64 = 2
	unlimitedTier int64 = 3
)

func userWithTier(t *testing.T, e *testEnv, email string, tierID *int64) int64 {
	t.Helper()
	id := storagetest.InsertUser(t, e.b, email)
	require.NoError(t, e.rm.Users(e.b.DB).SetTier(context.Background(), id, tierID))
	return id
}

func TestCheckQuota_UnlimitedIgnoresUsage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := userWithTier(t, e, "u@x.io", ptr(unlimitedTier))

	for i := 0; i < 50; i++ {
		_, err := e.quota.IncrementUsage(ctx, uid)
		require.NoError(t, err)
	}

	st, err := e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.True(t, st.Allowed)
	assert.Equal(t, -1, st.Limit)
	assert.Equal(t, -1, st.Remaining)
	assert.Equal(t, "Unlimited", st.TierName)
}

func TestCheckQuota_LimitBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tier, err := e.quota.CreateTier(ctx, TierInput{Name: "Three", DailyLimit: 3})
	require.NoError(t, err)
	uid := userWithTier(t, e, "u@x.io", &tier.ID)

	st, err := e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used)
	assert.Equal(t, 3, st.Remaining)
	assert.True(t, st.Allowed)

	for i := 0; i < 2; i++ {
		_, err := e.quota.IncrementUsage(ctx, uid)
		require.NoError(t, err)
	}
	st, err = e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.True(t, st.Allowed, "N-1 uses leave one")
	assert.Equal(t, 1, st.Remaining)

	_, err = e.quota.IncrementUsage(ctx, uid)
	require.NoError(t, err)
	st, err = e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Used)
	assert.False(t, st.Allowed)
	assert.Equal(t, 0, st.Remaining)

	// IncrementUsage does not enforce; remaining never goes negative.
	_, err = e.quota.IncrementUsage(ctx, uid)
	require.NoError(t, err)
	st, err = e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Used)
	assert.Equal(t, 0, st.Remaining)
}

func TestCheckQuota_ZeroLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tier, err := e.quota.CreateTier(ctx, TierInput{Name: "Suspended", DailyLimit: 0})
	require.NoError(t, err)
	uid := userWithTier(t, e, "u@x.io", &tier.ID)

	st, err := e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.False(t, st.Allowed)
	assert.Equal(t, 0, st.Limit)
}

func TestIncrementUsage_Concurrent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := userWithTier(t, e, "u@x.io", ptr(proTier))

	const k = 20
	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.quota.IncrementUsage(ctx, uid)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st, err := e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, k, st.Used)
}

func TestIncrementUsageOn_RejectsBadDate(t *testing.T) {
	e := newEnv(t)
	_, err := e.quota.IncrementUsageOn(context.Background(), 1, "16/10/2026")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestConsume_NeverExceedsLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tier, err := e.quota.CreateTier(ctx, TierInput{Name: "Five", DailyLimit: 5})
	require.NoError(t, err)
	uid := userWithTier(t, e, "u@x.io", &tier.ID)

	const k = 15
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.quota.Consume(ctx, uid)
			mu.Lock()
			defer mu.Unlock()
			var qe *QuotaExceededError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &qe):
				fail++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, k-5, fail)

	st, err := e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Used)
}

func TestConsume_ExceededCarriesCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tier, err := e.quota.CreateTier(ctx, TierInput{Name: "One", DailyLimit: 1})
	require.NoError(t, err)
	uid := userWithTier(t, e, "u@x.io", &tier.ID)

	st, err := e.quota.Consume(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Used)
	assert.False(t, st.Allowed)

	_, err = e.quota.Consume(ctx, uid)
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 1, qe.Used)
	assert.Equal(t, 1, qe.Limit)
	assert.Contains(t, qe.Error(), "1 of 1")

	require.NoError(t, e.quota.Refund(ctx, uid, e.quota.Today()))
	_, err = e.quota.Consume(ctx, uid)
	assert.NoError(t, err, "refunded use is available again")
}

func TestConsume_UnlimitedCountsUsage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := userWithTier(t, e, "u@x.io", ptr(unlimitedTier))

	for i := 1; i <= 3; i++ {
		st, err := e.quota.Consume(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, i, st.Used)
		assert.Equal(t, -1, st.Limit)
	}
}

func TestRefund_FloorsAtZero(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := userWithTier(t, e, "u@x.io", nil)

	require.NoError(t, e.quota.Refund(ctx, uid, e.quota.Today()))
	st, err := e.quota.CheckQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used)

	err = e.quota.Refund(ctx, uid, "yesterday")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestRefund_AfterMidnightHitsReservedDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := userWithTier(t, e, "u@x.io", ptr(proTier))
	e.clock.t = time.Date(2026, 10, 16, 23, 59, 59, 0, time.UTC)

	st, err := e.quota.Consume(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", st.Date)
	assert.Equal(t, 1, st.Used)

	e.clock.Advance(2 * time.Second)
	_, err = e.quota.IncrementUsage(ctx, uid)
	require.NoError(t, err)

	require.NoError(t, e.quota.Refund(ctx, uid, st.Date))

	usage := e.rm.Usage(e.b.DB)
	n, err := usage.Get(ctx, uid, "2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "refund lands on the day that was charged")
	n, err = usage.Get(ctx, uid, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the new day is untouched")
}

func TestGetTierForUser_DefaultPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("assigned tier wins", func(t *testing.T) {
		e := newEnv(t)
		uid := userWithTier(t, e, "u@x.io", ptr(proTier))
		tier, err := e.quota.GetTierForUser(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "Pro", tier.Name)
	})

	t.Run("falls back to default tier", func(t *testing.T) {
		e := newEnv(t)
		uid := userWithTier(t, e, "u@x.io", nil)
		st, err := e.quota.CheckQuota(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "Free", st.TierName)
		assert.Equal(t, 10, st.Limit)
	})

	t.Run("missing default tier meters at zero", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.DefaultTier = "Gone"
		e := newEnvWith(t, cfg, nil)
		uid := userWithTier(t, e, "u@x.io", nil)

		tier, err := e.quota.GetTierForUser(ctx, uid)
		require.NoError(t, err)
		assert.Nil(t, tier)

		st, err := e.quota.CheckQuota(ctx, uid)
		require.NoError(t, err)
		assert.False(t, st.Allowed)
		assert.Equal(t, 0, st.Limit)
	})
}

func TestToday_UsesConfiguredTimezone(t *testing.T) {
	cfg := newTestConfig()
	cfg.Timezone = "Pacific/Auckland"
	e := newEnvWith(t, cfg, nil)
	e.clock.t = time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-10-17", e.quota.Today())
}

func TestUsageForUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := userWithTier(t, e, "u@x.io", nil)

	_, err := e.quota.IncrementUsageOn(ctx, uid, "2026-10-01")
	require.NoError(t, err)
	_, err = e.quota.IncrementUsageOn(ctx, uid, "2026-10-15")
	require.NoError(t, err)
	_, err = e.quota.IncrementUsage(ctx, uid)
	require.NoError(t, err)

	rows, err := e.quota.UsageForUser(ctx, uid, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-10-16", rows[0].Date)
	assert.Equal(t, "2026-10-15", rows[1].Date)
}

func TestTierCRUD(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.quota.CreateTier(ctx, TierInput{Name: " "})
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = e.quota.CreateTier(ctx, TierInput{Name: "Bad", DailyLimit: -2})
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = e.quota.CreateTier(ctx, TierInput{Name: "Free", DailyLimit: 1})
	assert.ErrorIs(t, err, common.ErrTierExists)

	tier, err := e.quota.CreateTier(ctx, TierInput{Name: " Team ", DailyLimit: 50, Description: ptr("teams")})
	require.NoError(t, err)
	assert.Equal(t, "Team", tier.Name)

	list, err := e.quota.ListTiers(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, tr := range list {
		names = append(names, tr.Name)
	}
	assert.Equal(t, []string{"Free", "Team", "Pro", "Unlimited"}, names)

	updated, err := e.quota.UpdateTier(ctx, tier.ID, TierInput{Name: "Team", DailyLimit: 500})
	require.NoError(t, err)
	assert.Equal(t, 500, updated.DailyLimit)
	assert.Nil(t, updated.Description)

	_, err = e.quota.UpdateTier(ctx, tier.ID, TierInput{Name: "Pro", DailyLimit: 1})
	assert.ErrorIs(t, err, common.ErrTierExists)
	_, err = e.quota.UpdateTier(ctx, 999, TierInput{Name: "Nope", DailyLimit: 1})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeleteTier(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tier, err := e.quota.CreateTier(ctx, TierInput{Name: "Temp", DailyLimit: 2})
	require.NoError(t, err)
	uid := userWithTier(t, e, "u@x.io", &tier.ID)

	err = e.quota.DeleteTier(ctx, tier.ID)
	require.ErrorIs(t, err, common.ErrTierInUse)
	_, err = e.quota.GetTier(ctx, tier.ID)
	require.NoError(t, err, "tier survives a rejected delete")

	require.NoError(t, e.admin.AssignTier(ctx, uid, nil))
	require.NoError(t, e.quota.DeleteTier(ctx, tier.ID))
	_, err = e.quota.GetTier(ctx, tier.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, e.quota.DeleteTier(ctx, tier.ID), common.ErrorNotFound)
}
