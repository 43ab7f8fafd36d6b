package repository

import (
	"context"
	"testing"
	"time"

	"guildbank/models"
	"guildbank/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepository_ReadSnapshot(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	pool := testDB.DB.Pool

	_, err := newPoolRepository(pool, 1).Create(ctx, 900)
	require.NoError(t, err)

	accounts := newAccountRepository(pool, 1)
	_, err = accounts.Credit(ctx, 10, 60)
	require.NoError(t, err)
	_, err = accounts.Credit(ctx, 20, 40)
	require.NoError(t, err)

	counters := newActivityCounterRepository(pool, 1)
	_, err = counters.Increment(ctx, 10, models.CounterMessages, 120)
	require.NoError(t, err)
	_, err = counters.Increment(ctx, 30, models.CounterVoiceMinutes, 15)
	require.NoError(t, err)

	giveaways := newGiveawayRepository(pool, 1)
	g := testutil.CreateTestGiveaway(10, 5, 50, 1, time.Hour)
	require.NoError(t, giveaways.Create(ctx, g))
	_, _, err = giveaways.AdjustEscrow(ctx, g.ID, 50)
	require.NoError(t, err)

	shop := newShopRepository(pool, 1)
	item := testutil.CreateTestGoodItem("Torch", 5, models.UnlimitedStock)
	require.NoError(t, shop.Create(ctx, item))
	require.NoError(t, shop.AddGood(ctx, 20, item.ID, 3))

	snapshot, err := NewSnapshotRepository(testDB.DB).ReadSnapshot(ctx, 1)
	require.NoError(t, err)

	require.NotNil(t, snapshot.Pool)
	assert.Equal(t, int64(900), snapshot.Pool.Balance)
	assert.Equal(t, int64(50), snapshot.OpenEscrow)
	assert.Equal(t, int64(1050), snapshot.Total())
	assert.False(t, snapshot.TakenAt.IsZero())

	require.Len(t, snapshot.Accounts, 3)
	byID := make(map[int64]*models.AccountSnapshot)
	for _, a := range snapshot.Accounts {
		byID[a.Account.DiscordID] = a
	}
	assert.Equal(t, int64(120), byID[10].MessageCount)
	assert.Equal(t, int64(3), byID[20].GoodsOwned)
	assert.Equal(t, int64(15), byID[30].VoiceMinutes)
	assert.Zero(t, byID[30].Account.Balance)
}

func TestSnapshotRepository_UnregisteredGuild(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	snapshot, err := NewSnapshotRepository(testDB.DB).ReadSnapshot(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, snapshot.Pool)
	assert.Empty(t, snapshot.Accounts)
}
