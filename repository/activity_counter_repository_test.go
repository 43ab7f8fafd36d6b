package repository

import (
	"context"
	"testing"

	"guildbank/models"
	"guildbank/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityCounterRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := newActivityCounterRepository(testDB.DB.Pool, 1)
	ctx := context.Background()

	counter, err := repo.Increment(ctx, 42, models.CounterMessages, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counter.Total)
	assert.Equal(t, int64(0), counter.RewardedWatermark)

	counter, err = repo.Increment(ctx, 42, models.CounterMessages, 149)
	require.NoError(t, err)
	assert.Equal(t, int64(150), counter.Total)
	assert.Equal(t, int64(150), counter.NetNew())

	require.NoError(t, repo.AdvanceWatermark(ctx, 42, models.CounterMessages, 100))
	assert.Error(t, repo.AdvanceWatermark(ctx, 42, models.CounterMessages, 200), "watermark cannot pass total")
	assert.Error(t, repo.AdvanceWatermark(ctx, 42, models.CounterMessages, 50), "watermark cannot move back")

	_, err = repo.Increment(ctx, 42, models.CounterVoiceMinutes, 61)
	require.NoError(t, err)

	counters, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, counters, 2)
	assert.Equal(t, models.CounterMessages, counters[0].Kind)
	assert.Equal(t, int64(100), counters[0].RewardedWatermark)
	assert.Equal(t, int64(61), counters[1].Total)
}

func TestInviteRewardRepository_ClaimOncePerInvitee(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := newInviteRewardRepository(testDB.DB.Pool, 1)
	ctx := context.Background()

	claimed, err := repo.Claim(ctx, 77, 42, 20)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(ctx, 77, 43, 20)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = newInviteRewardRepository(testDB.DB.Pool, 2).Claim(ctx, 77, 42, 20)
	require.NoError(t, err)
	assert.True(t, claimed, "invitees are tracked per guild")
}
