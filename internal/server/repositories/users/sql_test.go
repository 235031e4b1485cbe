package users

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/dmitrijs2005/photocaption/internal/server/storage"
	"github.com/dmitrijs2005/photocaption/internal/server/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*SQLRepository, *storage.Backend) {
	t.Helper()
	b := storagetest.NewSQLite(t)
	return NewSQLRepository(b.DB, b.Dialect), b
}

func TestCreate_AndGet(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	tier := int64(2)
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	u, err := repo.Create(ctx, &models.User{Email: "alice@example.com", IsActive: true, TierID: &tier, CreatedAt: created})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsAdmin)
	require.NotNil(t, got.TierID)
	assert.Equal(t, int64(2), *got.TierID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.LastLogin)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{Email: "dup@example.com", IsActive: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{Email: "dup@example.com", IsActive: true})
	assert.ErrorIs(t, err, common.ErrUserExists)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_ConcurrentSameEmail(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	const n = 2
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Create(ctx, &models.User{Email: "race@example.com", IsActive: true})
		}(i)
	}
	wg.Wait()

	var ok, exists int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrUserExists):
			exists++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exists)
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdates(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{Email: "bob@example.com", IsActive: true})
	require.NoError(t, err)

	at := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, u.ID, at))
	require.NoError(t, repo.SetActive(ctx, u.ID, false))
	require.NoError(t, repo.SetAdmin(ctx, u.ID, true))
	tier := int64(3)
	require.NoError(t, repo.SetTier(ctx, u.ID, &tier))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))
	assert.False(t, got.IsActive)
	assert.True(t, got.IsAdmin)
	require.NotNil(t, got.TierID)
	assert.Equal(t, int64(3), *got.TierID)

	require.NoError(t, repo.SetTier(ctx, u.ID, nil))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TierID)

	assert.ErrorIs(t, repo.SetActive(ctx, 12345, true), common.ErrorNotFound)
}

func TestList_JoinsTierAndUsage(t *testing.T) {
	repo, b := newRepo(t)
	ctx := context.Background()

	tier := int64(1)
	older, err := repo.Create(ctx, &models.User{Email: "old@example.com", IsActive: true, TierID: &tier,
		CreatedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.User{Email: "new@example.com", IsActive: true})
	require.NoError(t, err)

	_, err = b.DB.Exec(`INSERT INTO daily_usage (user_id, date, usage_count) VALUES (?, '2026-10-16', 4)`, older.ID)
	require.NoError(t, err)

	list, err := repo.List(ctx, "2026-10-16")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "new@example.com", list[0].Email)
	assert.Equal(t, "", list[0].TierName)
	assert.Equal(t, 0, list[0].UsageToday)

	assert.Equal(t, "old@example.com", list[1].Email)
	assert.Equal(t, "Free", list[1].TierName)
	assert.Equal(t, 4, list[1].UsageToday)
}

func TestDelete(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{Email: "gone@example.com", IsActive: true})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), common.ErrorNotFound)
}

func TestPostgresPlaceholdersAndDBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, storage.PostgresDialect())

	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	mock.ExpectQuery(q).WithArgs("alice@example.com").WillReturnError(errors.New("db down"))

	_, err = repo.GetByEmail(context.Background(), "alice@example.com")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+is_admin\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`).
		WithArgs(true, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetAdmin(context.Background(), 7, true), common.ErrorNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
