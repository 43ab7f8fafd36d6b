package service

import (
	"context"
	"testing"

	"guildbank/events"
	"guildbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resourceItem(stock int64) *models.ShopItem {
	wood := models.ResourceWood
	return &models.ShopItem{
		ID:         8,
		GuildID:    testGuildID,
		Name:       "Lumber",
		Price:      50,
		RewardKind: models.RewardKindResource,
		Resource:   &wood,
		Quantity:   20,
		Stock:      stock,
	}
}

// expectMemberToPool sets up the repository calls of a member to pool transfer
func expectMemberToPool(ctx context.Context, mockUoW *MockUnitOfWork, discordID, amount, balanceBefore int64) {
	mockUoW.Pools.On("GetForUpdate", ctx).Return(&models.CommunityPool{Balance: 1000}, nil)
	mockUoW.Accounts.On("Debit", ctx, discordID, amount).Return(balanceBefore-amount, true, nil)
	mockUoW.History.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)
	mockUoW.Pools.On("Credit", ctx, amount).Return(1000+amount, nil)
	mockUoW.Transfers.On("Record", ctx, mock.AnythingOfType("*models.LedgerTransfer")).Return(nil)
}

func TestShopService_PurchaseResource(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)
	mockUoW.On("Commit").Return(nil)

	mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(resourceItem(2), nil)
	mockUoW.Accounts.On("Get", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Balance: 80}, nil)
	expectMemberToPool(ctx, mockUoW, 42, 50, 80)
	mockUoW.Accounts.On("AddResource", ctx, int64(42), models.ResourceWood, int64(20)).Return(nil)
	mockUoW.Shop.On("DecrementStock", ctx, int64(8)).Return(true, nil)

	svc := NewShopService(mockFactory)
	result, err := svc.Purchase(ctx, testGuildID, 42, 8)

	require.NoError(t, err)
	assert.Equal(t, int64(30), result.NewBalance)
	assert.Equal(t, "20 wood", result.RewardDescription)
	assert.Equal(t, int64(1), result.Item.Stock)
	assert.Len(t, mockUoW.Bus.OfType(events.EventTypePurchase), 1)
	mockUoW.AssertRepositoryExpectations(t)
}

func TestShopService_PurchaseUnlimitedGood(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW := expectUoW(ctx, testGuildID)
	mockUoW.On("Commit").Return(nil)

	item := &models.ShopItem{
		ID:         9,
		GuildID:    testGuildID,
		Name:       "Crown",
		Price:      200,
		RewardKind: models.RewardKindGood,
		Quantity:   1,
		Stock:      models.UnlimitedStock,
	}
	mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(9)).Return(item, nil)
	mockUoW.Accounts.On("Get", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Balance: 500}, nil)
	expectMemberToPool(ctx, mockUoW, 42, 200, 500)
	mockUoW.Shop.On("AddGood", ctx, int64(42), int64(9), int64(1)).Return(nil)

	svc := NewShopService(mockFactory)
	result, err := svc.Purchase(ctx, testGuildID, 42, 9)

	require.NoError(t, err)
	assert.Equal(t, "Crown", result.RewardDescription)
	assert.Equal(t, models.UnlimitedStock, result.Item.Stock)
	mockUoW.Shop.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything)
	mockUoW.AssertRepositoryExpectations(t)
}

func TestShopService_PurchaseRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("sold out", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(resourceItem(0), nil)
		mockUoW.Accounts.On("Get", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Balance: 80}, nil)

		svc := NewShopService(mockFactory)
		_, err := svc.Purchase(ctx, testGuildID, 42, 8)

		assert.ErrorIs(t, err, ErrOutOfStock)
		mockUoW.Accounts.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sold out and unaffordable reports funds first", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(resourceItem(0), nil)
		mockUoW.Accounts.On("Get", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Balance: 10}, nil)

		svc := NewShopService(mockFactory)
		_, err := svc.Purchase(ctx, testGuildID, 42, 8)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NotErrorIs(t, err, ErrOutOfStock)
		mockUoW.Accounts.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("buyer without an account", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(resourceItem(2), nil)
		mockUoW.Accounts.On("Get", ctx, int64(42)).Return(nil, nil)

		svc := NewShopService(mockFactory)
		_, err := svc.Purchase(ctx, testGuildID, 42, 8)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		mockUoW.AssertNotCalled(t, "Commit")
	})

	t.Run("unknown item", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(nil, nil)

		svc := NewShopService(mockFactory)
		_, err := svc.Purchase(ctx, testGuildID, 42, 8)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("buyer cannot afford", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(resourceItem(2), nil)
		mockUoW.Accounts.On("Get", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Balance: 30}, nil)

		svc := NewShopService(mockFactory)
		_, err := svc.Purchase(ctx, testGuildID, 42, 8)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		mockUoW.Accounts.AssertNotCalled(t, "AddResource", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockUoW.Shop.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything)
		mockUoW.AssertNotCalled(t, "Commit")
	})

	t.Run("stock lost to a concurrent buyer", func(t *testing.T) {
		mockFactory, mockUoW := expectUoW(ctx, testGuildID)
		mockUoW.Shop.On("GetByIDForUpdate", ctx, int64(8)).Return(resourceItem(1), nil)
		mockUoW.Accounts.On("Get", ctx, int64(42)).Return(&models.Account{DiscordID: 42, Balance: 80}, nil)
		expectMemberToPool(ctx, mockUoW, 42, 50, 80)
		mockUoW.Accounts.On("AddResource", ctx, int64(42), models.ResourceWood, int64(20)).Return(nil)
		mockUoW.Shop.On("DecrementStock", ctx, int64(8)).Return(false, nil)

		svc := NewShopService(mockFactory)
		_, err := svc.Purchase(ctx, testGuildID, 42, 8)

		assert.ErrorIs(t, err, ErrOutOfStock)
		mockUoW.AssertNotCalled(t, "Commit")
	})
}

func TestShopService_AddItemValidates(t *testing.T) {
	mockFactory := new(MockUnitOfWorkFactory)
	svc := NewShopService(mockFactory)

	_, err := svc.AddItem(context.Background(), testGuildID, &models.ShopItem{
		Name:       "Broken",
		Price:      10,
		RewardKind: models.RewardKindResource,
		Quantity:   1,
		Stock:      models.UnlimitedStock,
	})

	assert.Error(t, err)
	mockFactory.AssertNotCalled(t, "CreateForGuild", mock.Anything)
}
