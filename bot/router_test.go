package bot

import (
	"context"
	"testing"
	"time"

	"guildbank/models"
	"guildbank/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEconomy struct {
	service.EconomyService
	mock.Mock
}

func (m *mockEconomy) GetAccount(ctx context.Context, guildID, discordID int64) (*models.Account, error) {
	args := m.Called(guildID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockEconomy) GetInventory(ctx context.Context, guildID, discordID int64) ([]*models.InventoryGood, error) {
	args := m.Called(guildID, discordID)
	return args.Get(0).([]*models.InventoryGood), args.Error(1)
}

func (m *mockEconomy) AdjustPool(ctx context.Context, guildID int64, delta int64, adminID int64) (int64, error) {
	args := m.Called(guildID, delta, adminID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEconomy) AdminTransfer(ctx context.Context, guildID int64, from models.Party, toDiscordID int64, amount int64) (*models.TransferResult, error) {
	args := m.Called(guildID, from, toDiscordID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransferResult), args.Error(1)
}

type mockRewards struct {
	service.RewardService
	mock.Mock
}

func (m *mockRewards) ClaimDaily(ctx context.Context, guildID, discordID int64) (*models.DailyClaimResult, error) {
	args := m.Called(guildID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyClaimResult), args.Error(1)
}

type mockShop struct {
	service.ShopService
	mock.Mock
}

func (m *mockShop) AddItem(ctx context.Context, guildID int64, item *models.ShopItem) (*models.ShopItem, error) {
	args := m.Called(guildID, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShopItem), args.Error(1)
}

type mockGiveaways struct {
	service.GiveawayService
	mock.Mock
}

func (m *mockGiveaways) CreateGiveaway(ctx context.Context, params service.CreateGiveawayParams) (*models.Giveaway, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *mockGiveaways) JoinGiveaway(ctx context.Context, guildID, giveawayID, discordID int64, roleIDs []int64) error {
	return m.Called(guildID, giveawayID, discordID, roleIDs).Error(0)
}

func (m *mockGiveaways) CancelGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.GiveawayOutcome, error) {
	args := m.Called(guildID, giveawayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiveawayOutcome), args.Error(1)
}

func (m *mockGiveaways) SetMessage(ctx context.Context, guildID, giveawayID, channelID, messageID int64) error {
	return m.Called(guildID, giveawayID, channelID, messageID).Error(0)
}

type recordingAnnouncer struct {
	outcomes []*models.GiveawayOutcome
}

func (a *recordingAnnouncer) AnnounceOutcome(ctx context.Context, outcome *models.GiveawayOutcome) {
	a.outcomes = append(a.outcomes, outcome)
}

var (
	member = Invocation{GuildID: 1, ChannelID: 5, UserID: 100, RoleIDs: []int64{7}}
	admin  = Invocation{GuildID: 1, ChannelID: 5, UserID: 200, IsAdmin: true}
)

func TestDispatch_AdminOnlyCommands(t *testing.T) {
	economy := &mockEconomy{}
	r := newRouter(Services{Economy: economy})

	commands := []Command{
		PoolAdjustCommand{Delta: 10},
		TransferCommand{ToMemberID: 5, Amount: 10},
		GiveawayCreateCommand{TotalPrize: 10, WinnerCount: 1, Duration: time.Minute},
		GiveawayCancelCommand{GiveawayID: 1},
		ShopAddCommand{ItemName: "Banner", Price: 5, Quantity: 1, Stock: -1},
		ResetCommand{},
	}
	for _, cmd := range commands {
		_, err := r.dispatch(context.Background(), member, cmd)
		assert.ErrorIs(t, err, errNotAdmin, "%s", cmd.Name())
	}
	economy.AssertNotCalled(t, "AdjustPool", mock.Anything, mock.Anything, mock.Anything)
	economy.AssertNotCalled(t, "AdminTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_Daily(t *testing.T) {
	rewards := &mockRewards{}
	r := newRouter(Services{Rewards: rewards})

	rewards.On("ClaimDaily", int64(1), int64(100)).Return(&models.DailyClaimResult{
		Amount:         60,
		Streak:         2,
		NewBalance:     160,
		NextEligibleAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}, nil)

	reply, err := r.dispatch(context.Background(), member, DailyCommand{})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "**60 credits**")
	assert.Contains(t, reply.Content, "streak: 2 days")
	assert.Contains(t, reply.Content, "<t:1772582400:R>")
	rewards.AssertExpectations(t)
}

func TestDispatch_DailyCooldownPassesThrough(t *testing.T) {
	rewards := &mockRewards{}
	r := newRouter(Services{Rewards: rewards})

	cooldown := &service.DailyCooldownError{NextEligibleAt: time.Now().Add(time.Hour)}
	rewards.On("ClaimDaily", int64(1), int64(100)).Return(nil, cooldown)

	_, err := r.dispatch(context.Background(), member, DailyCommand{})
	assert.ErrorIs(t, err, service.ErrAlreadyClaimedToday)
}

func TestDispatch_BalanceDefaultsToCaller(t *testing.T) {
	economy := &mockEconomy{}
	r := newRouter(Services{Economy: economy})

	economy.On("GetAccount", int64(1), int64(100)).Return(&models.Account{DiscordID: 100, Balance: 1234}, nil)
	economy.On("GetInventory", int64(1), int64(100)).Return([]*models.InventoryGood{{Name: "Banner", Quantity: 2}}, nil)

	reply, err := r.dispatch(context.Background(), member, BalanceCommand{})
	require.NoError(t, err)
	assert.True(t, reply.Ephemeral)
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "<@100>", reply.Embed.Description)
	assert.Equal(t, "**1,234 credits**", reply.Embed.Fields[0].Value)
	assert.Equal(t, "Banner x2", reply.Embed.Fields[len(reply.Embed.Fields)-1].Value)
	economy.AssertExpectations(t)
}

func TestDispatch_PoolAdjustRemoval(t *testing.T) {
	economy := &mockEconomy{}
	r := newRouter(Services{Economy: economy})

	economy.On("AdjustPool", int64(1), int64(-300), int64(200)).Return(int64(700), nil)

	reply, err := r.dispatch(context.Background(), admin, PoolAdjustCommand{Delta: -300})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "Removed **300 credits**")
	assert.Contains(t, reply.Content, "**700 credits**")
}

func TestDispatch_TransferSource(t *testing.T) {
	economy := &mockEconomy{}
	r := newRouter(Services{Economy: economy})

	economy.On("AdminTransfer", int64(1), models.PoolParty(), int64(42), int64(50)).
		Return(&models.TransferResult{Amount: 50, ToBalance: 50}, nil).Once()
	economy.On("AdminTransfer", int64(1), models.MemberParty(7), int64(42), int64(50)).
		Return(nil, service.ErrInsufficientFunds).Once()

	reply, err := r.dispatch(context.Background(), admin, TransferCommand{ToMemberID: 42, Amount: 50})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "from the community pool to <@42>")

	_, err = r.dispatch(context.Background(), admin, TransferCommand{FromMemberID: 7, ToMemberID: 42, Amount: 50})
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)
	economy.AssertExpectations(t)
}

func TestDispatch_GiveawayCreateRecordsMessage(t *testing.T) {
	giveaways := &mockGiveaways{}
	r := newRouter(Services{Giveaways: giveaways})

	params := service.CreateGiveawayParams{
		GuildID:         1,
		CreatorID:       200,
		EntryCost:       10,
		TotalPrize:      100,
		WinnerCount:     3,
		Duration:        time.Hour,
		ExcludedRoleIDs: []int64{9},
		ChannelID:       5,
	}
	g := &models.Giveaway{
		ID:          12,
		GuildID:     1,
		CreatorID:   200,
		State:       models.GiveawayStateOpen,
		EntryCost:   10,
		TotalPrize:  100,
		WinnerCount: 3,
		EndTime:     time.Now().Add(time.Hour),
	}
	giveaways.On("CreateGiveaway", params).Return(g, nil)
	giveaways.On("SetMessage", int64(1), int64(12), int64(5), int64(999)).Return(nil)

	reply, err := r.dispatch(context.Background(), admin, GiveawayCreateCommand{
		EntryCost:      10,
		TotalPrize:     100,
		WinnerCount:    3,
		Duration:       time.Hour,
		ExcludedRoleID: 9,
	})
	require.NoError(t, err)
	assert.False(t, reply.Ephemeral)
	require.NotNil(t, reply.Embed)
	require.Len(t, reply.Components, 1)
	require.NotNil(t, reply.Posted)

	reply.Posted(context.Background(), 5, 999)
	giveaways.AssertExpectations(t)
}

func TestDispatch_GiveawayJoinErrors(t *testing.T) {
	giveaways := &mockGiveaways{}
	r := newRouter(Services{Giveaways: giveaways})

	giveaways.On("JoinGiveaway", int64(1), int64(3), int64(100), []int64{7}).Return(service.ErrExcluded)

	_, err := r.dispatch(context.Background(), member, GiveawayJoinCommand{GiveawayID: 3})
	assert.ErrorIs(t, err, service.ErrExcluded)
}

func TestDispatch_GiveawayCancelAnnounces(t *testing.T) {
	giveaways := &mockGiveaways{}
	announcer := &recordingAnnouncer{}
	r := newRouter(Services{Giveaways: giveaways})
	r.announcer = announcer

	outcome := &models.GiveawayOutcome{
		Giveaway:     &models.Giveaway{ID: 3, GuildID: 1, State: models.GiveawayStateCancelled},
		Participants: 2,
		Refunded:     []int64{100, 101},
	}
	giveaways.On("CancelGiveaway", int64(1), int64(3)).Return(outcome, nil)

	reply, err := r.dispatch(context.Background(), admin, GiveawayCancelCommand{GiveawayID: 3})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "<@100>, <@101>")
	require.Len(t, announcer.outcomes, 1)
	assert.Same(t, outcome, announcer.outcomes[0])
}

func TestDispatch_ShopAdd(t *testing.T) {
	shop := &mockShop{}
	r := newRouter(Services{Shop: shop})
	wood := models.ResourceWood

	shop.On("AddItem", int64(1), mock.MatchedBy(func(item *models.ShopItem) bool {
		return item.RewardKind == models.RewardKindResource && *item.Resource == models.ResourceWood && item.Quantity == 5
	})).Return(&models.ShopItem{
		ID:         8,
		Name:       "Lumber",
		Price:      20,
		RewardKind: models.RewardKindResource,
		Resource:   &wood,
		Quantity:   5,
		Stock:      models.UnlimitedStock,
	}, nil)

	reply, err := r.dispatch(context.Background(), admin, ShopAddCommand{
		ItemName: "Lumber", Price: 20, Resource: "wood", Quantity: 5, Stock: models.UnlimitedStock,
	})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "#8 Lumber (5 wood)")
	shop.AssertExpectations(t)
}

func TestDispatch_ShopAddRejectsBadItems(t *testing.T) {
	shop := &mockShop{}
	r := newRouter(Services{Shop: shop})

	var arg *argError
	_, err := r.dispatch(context.Background(), admin, ShopAddCommand{ItemName: "Gems", Price: 5, Resource: "diamonds", Quantity: 1, Stock: -1})
	assert.ErrorAs(t, err, &arg)

	_, err = r.dispatch(context.Background(), admin, ShopAddCommand{ItemName: "", Price: 5, Quantity: 1, Stock: -1})
	assert.ErrorAs(t, err, &arg)

	_, err = r.dispatch(context.Background(), admin, ShopAddCommand{ItemName: "Banner", Price: 5, Quantity: 1, Stock: -5})
	assert.ErrorAs(t, err, &arg)

	shop.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything)
}
