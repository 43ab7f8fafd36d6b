package repository

import (
	"context"
	"testing"

	"guildbank/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := newPoolRepository(testDB.DB.Pool, 1)
	ctx := context.Background()

	pool, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, pool)

	created, err := repo.Create(ctx, 0)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, 500)
	require.NoError(t, err)
	assert.False(t, created, "second registration must not reset the pool")

	balance, err := repo.Credit(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	_, ok, err := repo.Debit(ctx, 101)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, ok, err = repo.Debit(ctx, 100)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), balance)

	require.NoError(t, repo.SetRewardedBoosts(ctx, 3))
	require.NoError(t, repo.SetRewardedBoosts(ctx, 1))

	pool, err = repo.GetForUpdate(ctx)
	require.NoError(t, err)
	require.NotNil(t, pool)
	assert.Equal(t, 1, pool.RewardedBoosts)
	assert.Equal(t, int64(0), pool.Balance)

	assert.Error(t, newPoolRepository(testDB.DB.Pool, 2).SetRewardedBoosts(ctx, 1))
}
