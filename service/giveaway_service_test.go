package service

import (
	"context"
	"testing"
	"time"

	"guildbank/events"
	"guildbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var giveawayNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func openGiveaway(endTime time.Time) *models.Giveaway {
	return &models.Giveaway{
		ID:          5,
		GuildID:     testGuildID,
		CreatorID:   1000,
		State:       models.GiveawayStateOpen,
		EntryCost:   10,
		TotalPrize:  100,
		WinnerCount: 3,
		Escrow:      100,
		EndTime:     endTime,
	}
}

func participants(ids ...int64) []*models.GiveawayParticipant {
	result := make([]*models.GiveawayParticipant, len(ids))
	for i, id := range ids {
		result[i] = &models.GiveawayParticipant{GiveawayID: 5, DiscordID: id, EntryCost: 10}
	}
	return result
}

func TestGiveawayService_CreateEscrowsPrize(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)
	mockUoW.On("Commit").Return(nil)
	mockTimers := new(MockGiveawayTimers)

	mockUoW.Giveaways.On("Create", ctx, mock.MatchedBy(func(g *models.Giveaway) bool {
		return g.State == models.GiveawayStateOpen &&
			g.TotalPrize == 100 &&
			g.EndTime.Equal(giveawayNow.Add(time.Hour))
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Giveaway).ID = 5
	}).Return(nil)
	mockUoW.Transfers.On("ExistsByKey", ctx, "giveaway:escrow:5").Return(false, nil)
	mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 500}, nil)
	mockUoW.Pools.On("Debit", ctx, int64(100)).Return(int64(400), true, nil)
	mockUoW.Giveaways.On("AdjustEscrow", ctx, int64(5), int64(100)).Return(int64(100), true, nil)
	mockUoW.Transfers.On("Record", ctx, mock.AnythingOfType("*models.LedgerTransfer")).Return(nil)
	mockTimers.On("Arm", testGuildID, int64(5), giveawayNow.Add(time.Hour)).Return()

	svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
	svc.SetTimers(mockTimers)

	giveaway, err := svc.CreateGiveaway(ctx, CreateGiveawayParams{
		GuildID:     testGuildID,
		CreatorID:   1000,
		EntryCost:   10,
		TotalPrize:  100,
		WinnerCount: 3,
		Duration:    time.Hour,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(100), giveaway.Escrow)
	require.Len(t, mockUoW.Bus.OfType(events.EventTypeGiveawayStateChange), 1)
	mockUoW.AssertRepositoryExpectations(t)
	mockTimers.AssertExpectations(t)
}

func TestGiveawayService_CreateFailsWhenPoolShort(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)
	mockTimers := new(MockGiveawayTimers)

	mockUoW.Giveaways.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Giveaway).ID = 5
	}).Return(nil)
	mockUoW.Transfers.On("ExistsByKey", ctx, "giveaway:escrow:5").Return(false, nil)
	mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 50}, nil)
	mockUoW.Pools.On("Debit", ctx, int64(100)).Return(int64(0), false, nil)

	svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
	svc.SetTimers(mockTimers)

	_, err := svc.CreateGiveaway(ctx, CreateGiveawayParams{
		GuildID:     testGuildID,
		EntryCost:   10,
		TotalPrize:  100,
		WinnerCount: 3,
		Duration:    time.Hour,
	})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	mockUoW.AssertNotCalled(t, "Commit")
	mockTimers.AssertNotCalled(t, "Arm", mock.Anything, mock.Anything, mock.Anything)
}

func TestGiveawayService_CreateValidatesInput(t *testing.T) {
	svc := newGiveawayService(new(MockUnitOfWorkFactory), StubPicker{}, fixedClock(giveawayNow))

	tests := []struct {
		name   string
		params CreateGiveawayParams
	}{
		{"zero prize", CreateGiveawayParams{EntryCost: 10, WinnerCount: 1, Duration: time.Hour}},
		{"zero entry cost", CreateGiveawayParams{TotalPrize: 10, WinnerCount: 1, Duration: time.Hour}},
		{"no winners", CreateGiveawayParams{EntryCost: 10, TotalPrize: 10, Duration: time.Hour}},
		{"no duration", CreateGiveawayParams{EntryCost: 10, TotalPrize: 10, WinnerCount: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGiveaway(context.Background(), tt.params)
			assert.Error(t, err)
		})
	}
}

func TestGiveawayService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("entry cost moves to the pool", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.On("Commit").Return(nil)

		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(openGiveaway(giveawayNow.Add(time.Hour)), nil)
		mockUoW.Giveaways.On("AddParticipant", ctx, int64(5), int64(42), int64(10)).Return(true, nil)
		mockUoW.Transfers.On("ExistsByKey", ctx, "giveaway:entry:5:42").Return(false, nil)
		mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 0}, nil)
		mockUoW.Accounts.On("Debit", ctx, int64(42), int64(10)).Return(int64(90), true, nil)
		mockUoW.History.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)
		mockUoW.Pools.On("Credit", ctx, int64(10)).Return(int64(10), nil)
		mockUoW.Transfers.On("Record", ctx, mock.AnythingOfType("*models.LedgerTransfer")).Return(nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		err := svc.JoinGiveaway(ctx, testGuildID, 5, 42, []int64{300})

		require.NoError(t, err)
		assert.Len(t, mockUoW.Bus.OfType(events.EventTypeGiveawayJoined), 1)
		mockUoW.AssertRepositoryExpectations(t)
	})

	t.Run("after end time", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(openGiveaway(giveawayNow), nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		err := svc.JoinGiveaway(ctx, testGuildID, 5, 42, nil)

		assert.ErrorIs(t, err, ErrClosed)
		mockUoW.Giveaways.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("resolved giveaway", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		g := openGiveaway(giveawayNow.Add(time.Hour))
		g.State = models.GiveawayStateResolved
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(g, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		assert.ErrorIs(t, svc.JoinGiveaway(ctx, testGuildID, 5, 42, nil), ErrClosed)
	})

	t.Run("excluded role", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		g := openGiveaway(giveawayNow.Add(time.Hour))
		g.ExcludedRoleIDs = []int64{300}
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(g, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		assert.ErrorIs(t, svc.JoinGiveaway(ctx, testGuildID, 5, 42, []int64{100, 300}), ErrExcluded)
	})

	t.Run("second entry", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(openGiveaway(giveawayNow.Add(time.Hour)), nil)
		mockUoW.Giveaways.On("AddParticipant", ctx, int64(5), int64(42), int64(10)).Return(false, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		err := svc.JoinGiveaway(ctx, testGuildID, 5, 42, nil)

		assert.ErrorIs(t, err, ErrAlreadyEntered)
		mockUoW.Accounts.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other guild", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, 2)
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(openGiveaway(giveawayNow.Add(time.Hour)), nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		assert.ErrorIs(t, svc.JoinGiveaway(ctx, 2, 5, 42, nil), ErrNotFound)
	})
}

func TestGiveawayService_ResolvePaysFloorShare(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)
	mockUoW.On("Commit").Return(nil)
	mockTimers := new(MockGiveawayTimers)

	mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(openGiveaway(giveawayNow), nil)
	mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 40}, nil)
	mockUoW.Giveaways.On("GetParticipants", ctx, int64(5)).Return(participants(11, 12, 13, 14), nil)
	mockUoW.Transfers.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(false, nil)
	mockUoW.Transfers.On("Record", ctx, mock.AnythingOfType("*models.LedgerTransfer")).Return(nil)
	mockUoW.History.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)

	mockUoW.Giveaways.On("AdjustEscrow", ctx, int64(5), int64(-33)).Return(int64(67), true, nil).Once()
	mockUoW.Giveaways.On("AdjustEscrow", ctx, int64(5), int64(-33)).Return(int64(34), true, nil).Once()
	mockUoW.Giveaways.On("AdjustEscrow", ctx, int64(5), int64(-33)).Return(int64(1), true, nil).Once()
	mockUoW.Giveaways.On("AdjustEscrow", ctx, int64(5), int64(-1)).Return(int64(0), true, nil).Once()
	for _, id := range []int64{12, 13, 14} {
		mockUoW.Accounts.On("Credit", ctx, id, int64(33)).Return(int64(33), nil)
		mockUoW.Giveaways.On("AddWinner", ctx, mock.MatchedBy(func(w *models.GiveawayWinner) bool {
			return w.DiscordID == id && w.Payout == 33
		})).Return(nil)
	}
	mockUoW.Pools.On("Credit", ctx, int64(1)).Return(int64(41), nil)
	mockUoW.Giveaways.On("UpdateState", ctx, int64(5), models.GiveawayStateResolved, giveawayNow).Return(nil)
	mockTimers.On("Disarm", int64(5)).Return()

	svc := newGiveawayService(mockFactory, StubPicker{Winners: []int64{12, 13, 14}}, fixedClock(giveawayNow))
	svc.SetTimers(mockTimers)

	outcome, err := svc.ResolveGiveaway(ctx, testGuildID, 5)

	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStateResolved, outcome.Giveaway.State)
	assert.Equal(t, 4, outcome.Participants)
	assert.Len(t, outcome.Winners, 3)
	assert.Equal(t, int64(1), outcome.Remainder)
	assert.Empty(t, outcome.Refunded)

	stateEvents := mockUoW.Bus.OfType(events.EventTypeGiveawayStateChange)
	require.Len(t, stateEvents, 1)
	assert.Equal(t, models.GiveawayStateOpen, stateEvents[0].(events.GiveawayStateChangeEvent).OldState)

	mockUoW.AssertRepositoryExpectations(t)
	mockTimers.AssertExpectations(t)
}

func TestGiveawayService_ResolveWithTooFewEntrantsRefunds(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)
	mockUoW.On("Commit").Return(nil)

	g := openGiveaway(giveawayNow.Add(-time.Minute))
	g.WinnerCount = 5
	mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(g, nil)
	mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 30}, nil)
	mockUoW.Giveaways.On("GetParticipants", ctx, int64(5)).Return(participants(11, 12, 13), nil)
	mockUoW.Transfers.On("ExistsByKey", ctx, mock.AnythingOfType("string")).Return(false, nil)
	mockUoW.Transfers.On("Record", ctx, mock.AnythingOfType("*models.LedgerTransfer")).Return(nil)
	mockUoW.History.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)

	mockUoW.Giveaways.On("AdjustEscrow", ctx, int64(5), int64(-100)).Return(int64(0), true, nil)
	mockUoW.Pools.On("Credit", ctx, int64(100)).Return(int64(130), nil)
	mockUoW.Pools.On("Debit", ctx, int64(10)).Return(int64(120), true, nil).Once()
	mockUoW.Pools.On("Debit", ctx, int64(10)).Return(int64(110), true, nil).Once()
	mockUoW.Pools.On("Debit", ctx, int64(10)).Return(int64(100), true, nil).Once()
	for _, id := range []int64{11, 12, 13} {
		mockUoW.Accounts.On("Credit", ctx, id, int64(10)).Return(int64(10), nil)
	}
	mockUoW.Giveaways.On("UpdateState", ctx, int64(5), models.GiveawayStateCancelled, giveawayNow).Return(nil)

	svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
	outcome, err := svc.ResolveGiveaway(ctx, testGuildID, 5)

	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStateCancelled, outcome.Giveaway.State)
	assert.ElementsMatch(t, []int64{11, 12, 13}, outcome.Refunded)
	assert.Empty(t, outcome.Winners)
	assert.Equal(t, int64(100), outcome.Remainder)
	mockUoW.Giveaways.AssertNotCalled(t, "AddWinner", mock.Anything, mock.Anything)
	mockUoW.AssertRepositoryExpectations(t)
}

func TestGiveawayService_CancelRefundShortfallKeepsGiveawayOpen(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)

	g := openGiveaway(giveawayNow.Add(time.Hour))
	g.Escrow = 0
	mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(g, nil)
	mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 5}, nil)
	mockUoW.Giveaways.On("GetParticipants", ctx, int64(5)).Return(participants(11), nil)
	mockUoW.Transfers.On("ExistsByKey", ctx, "giveaway:refund:5:11").Return(false, nil)
	mockUoW.Pools.On("Debit", ctx, int64(10)).Return(int64(0), false, nil)

	svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
	_, err := svc.CancelGiveaway(ctx, testGuildID, 5)

	assert.ErrorIs(t, err, ErrInvariantViolation)
	mockUoW.AssertNotCalled(t, "Commit")
	mockUoW.Giveaways.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGiveawayService_ResolveRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("not due", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(openGiveaway(giveawayNow.Add(time.Second)), nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		_, err := svc.ResolveGiveaway(ctx, testGuildID, 5)

		assert.ErrorIs(t, err, ErrNotDue)
	})

	t.Run("already resolved", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		g := openGiveaway(giveawayNow.Add(-time.Hour))
		g.State = models.GiveawayStateResolved
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(g, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		_, err := svc.ResolveGiveaway(ctx, testGuildID, 5)

		assert.ErrorIs(t, err, ErrInvalidState)
		mockUoW.Pools.AssertNotCalled(t, "GetForUpdate", mock.Anything)
	})

	t.Run("already cancelled", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		g := openGiveaway(giveawayNow.Add(-time.Hour))
		g.State = models.GiveawayStateCancelled
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(g, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		_, err := svc.CancelGiveaway(ctx, testGuildID, 5)

		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("missing", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Giveaways.On("GetByIDForUpdate", ctx, int64(5)).Return(nil, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		_, err := svc.ResolveGiveaway(ctx, testGuildID, 5)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGiveawayService_CancelForDeletedMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("unrelated message", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, 0)
		mockUoW.Giveaways.On("GetByMessageID", ctx, int64(777)).Return(nil, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		outcome, err := svc.CancelForDeletedMessage(ctx, 777)

		require.NoError(t, err)
		assert.Nil(t, outcome)
	})

	t.Run("settled giveaway is left alone", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, 0)
		g := openGiveaway(giveawayNow.Add(-time.Hour))
		g.State = models.GiveawayStateResolved
		mockUoW.Giveaways.On("GetByMessageID", ctx, int64(777)).Return(g, nil)

		svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
		outcome, err := svc.CancelForDeletedMessage(ctx, 777)

		require.NoError(t, err)
		assert.Nil(t, outcome)
		mockFactory.AssertNotCalled(t, "CreateForGuild", testGuildID)
	})
}

func TestGiveawayService_ListDueGiveaways(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, 0)
	due := openGiveaway(giveawayNow.Add(-time.Minute))
	mockUoW.Giveaways.On("ListDue", ctx, giveawayNow).Return([]*models.Giveaway{due}, nil)

	svc := newGiveawayService(mockFactory, StubPicker{}, fixedClock(giveawayNow))
	giveaways, err := svc.ListDueGiveaways(ctx, giveawayNow)

	require.NoError(t, err)
	require.Len(t, giveaways, 1)
	assert.Equal(t, int64(5), giveaways[0].ID)
	mockUoW.AssertRepositoryExpectations(t)
}
