package repository

import (
	"context"
	"testing"

	"guildbank/models"
	"guildbank/repository/testutil"
	"guildbank/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRepository_IdempotencyKey(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := newTransferRepository(testDB.DB.Pool, 1)
	ctx := context.Background()

	key := "daily:1:42:2026-03-02"
	transfer := &models.LedgerTransfer{
		SourceKind:      models.PartyPool,
		DestKind:        models.PartyMember,
		DestID:          models.MemberParty(42).IDPtr(),
		Amount:          6,
		TransactionType: models.TransactionTypeDailyClaim,
		IdempotencyKey:  &key,
	}
	require.NoError(t, repo.Record(ctx, transfer))
	assert.NotZero(t, transfer.ID)

	exists, err := repo.ExistsByKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	duplicate := *transfer
	err = repo.Record(ctx, &duplicate)
	assert.ErrorIs(t, err, service.ErrDuplicateTransfer)

	unkeyed := &models.LedgerTransfer{
		SourceKind:      models.PartyExternal,
		DestKind:        models.PartyPool,
		Amount:          500,
		TransactionType: models.TransactionTypeBoostGrant,
	}
	require.NoError(t, repo.Record(ctx, unkeyed))
	require.NoError(t, repo.Record(ctx, &models.LedgerTransfer{
		SourceKind:      models.PartyExternal,
		DestKind:        models.PartyPool,
		Amount:          500,
		TransactionType: models.TransactionTypeBoostGrant,
	}), "transfers without a key never collide")

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Nil(t, recent[0].IdempotencyKey)
	assert.Nil(t, recent[0].SourceID)
	require.NotNil(t, recent[2].DestID)
	assert.Equal(t, int64(42), *recent[2].DestID)
}
