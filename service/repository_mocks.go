package service

import (
	"context"
	"time"

	"guildbank/events"
	"guildbank/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Ensure(ctx context.Context, discordID int64) error {
	args := m.Called(ctx, discordID)
	return args.Error(0)
}

func (m *MockAccountRepository) Get(ctx context.Context, discordID int64) (*models.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, discordID int64) (*models.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Credit(ctx context.Context, discordID int64, amount int64) (int64, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Debit(ctx context.Context, discordID int64, amount int64) (int64, bool, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockAccountRepository) AddResource(ctx context.Context, discordID int64, kind models.ResourceKind, quantity int64) error {
	args := m.Called(ctx, discordID, kind, quantity)
	return args.Error(0)
}

func (m *MockAccountRepository) RecordDailyClaim(ctx context.Context, discordID int64, day time.Time, streak int) error {
	args := m.Called(ctx, discordID, day, streak)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ResetAll(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockPoolRepository is a mock implementation of PoolRepository
type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) Create(ctx context.Context, balance int64) (bool, error) {
	args := m.Called(ctx, balance)
	return args.Bool(0), args.Error(1)
}

func (m *MockPoolRepository) Get(ctx context.Context) (*models.CommunityPool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommunityPool), args.Error(1)
}

func (m *MockPoolRepository) GetForUpdate(ctx context.Context) (*models.CommunityPool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommunityPool), args.Error(1)
}

func (m *MockPoolRepository) Credit(ctx context.Context, amount int64) (int64, error) {
	args := m.Called(ctx, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPoolRepository) Debit(ctx context.Context, amount int64) (int64, bool, error) {
	args := m.Called(ctx, amount)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockPoolRepository) SetRewardedBoosts(ctx context.Context, count int) error {
	args := m.Called(ctx, count)
	return args.Error(0)
}

// MockActivityCounterRepository is a mock implementation of ActivityCounterRepository
type MockActivityCounterRepository struct {
	mock.Mock
}

func (m *MockActivityCounterRepository) Increment(ctx context.Context, discordID int64, kind models.CounterKind, delta int64) (*models.ActivityCounter, error) {
	args := m.Called(ctx, discordID, kind, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityCounter), args.Error(1)
}

func (m *MockActivityCounterRepository) AdvanceWatermark(ctx context.Context, discordID int64, kind models.CounterKind, watermark int64) error {
	args := m.Called(ctx, discordID, kind, watermark)
	return args.Error(0)
}

func (m *MockActivityCounterRepository) List(ctx context.Context) ([]*models.ActivityCounter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActivityCounter), args.Error(1)
}

// MockInviteRewardRepository is a mock implementation of InviteRewardRepository
type MockInviteRewardRepository struct {
	mock.Mock
}

func (m *MockInviteRewardRepository) Claim(ctx context.Context, inviteeID, inviterID, amount int64) (bool, error) {
	args := m.Called(ctx, inviteeID, inviterID, amount)
	return args.Bool(0), args.Error(1)
}

// MockShopRepository is a mock implementation of ShopRepository
type MockShopRepository struct {
	mock.Mock
}

func (m *MockShopRepository) Create(ctx context.Context, item *models.ShopItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShopRepository) GetByID(ctx context.Context, id int64) (*models.ShopItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShopItem), args.Error(1)
}

func (m *MockShopRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ShopItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShopItem), args.Error(1)
}

func (m *MockShopRepository) List(ctx context.Context) ([]*models.ShopItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ShopItem), args.Error(1)
}

func (m *MockShopRepository) DecrementStock(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockShopRepository) AddGood(ctx context.Context, discordID, itemID, quantity int64) error {
	args := m.Called(ctx, discordID, itemID, quantity)
	return args.Error(0)
}

func (m *MockShopRepository) ListGoods(ctx context.Context, discordID int64) ([]*models.InventoryGood, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InventoryGood), args.Error(1)
}

// MockGiveawayRepository is a mock implementation of GiveawayRepository
type MockGiveawayRepository struct {
	mock.Mock
}

func (m *MockGiveawayRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	args := m.Called(ctx, giveaway)
	return args.Error(0)
}

func (m *MockGiveawayRepository) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Giveaway, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) GetByMessageID(ctx context.Context, messageID int64) (*models.Giveaway, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) SetMessage(ctx context.Context, id, channelID, messageID int64) error {
	args := m.Called(ctx, id, channelID, messageID)
	return args.Error(0)
}

func (m *MockGiveawayRepository) UpdateState(ctx context.Context, id int64, state models.GiveawayState, resolvedAt time.Time) error {
	args := m.Called(ctx, id, state, resolvedAt)
	return args.Error(0)
}

func (m *MockGiveawayRepository) AdjustEscrow(ctx context.Context, id int64, delta int64) (int64, bool, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockGiveawayRepository) AddParticipant(ctx context.Context, id, discordID, entryCost int64) (bool, error) {
	args := m.Called(ctx, id, discordID, entryCost)
	return args.Bool(0), args.Error(1)
}

func (m *MockGiveawayRepository) GetParticipants(ctx context.Context, id int64) ([]*models.GiveawayParticipant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiveawayParticipant), args.Error(1)
}

func (m *MockGiveawayRepository) AddWinner(ctx context.Context, winner *models.GiveawayWinner) error {
	args := m.Called(ctx, winner)
	return args.Error(0)
}

func (m *MockGiveawayRepository) GetWinners(ctx context.Context, id int64) ([]*models.GiveawayWinner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiveawayWinner), args.Error(1)
}

func (m *MockGiveawayRepository) ListOpen(ctx context.Context) ([]*models.Giveaway, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Giveaway, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Giveaway), args.Error(1)
}

func (m *MockGiveawayRepository) SumOpenEscrow(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransferRepository is a mock implementation of TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) Record(ctx context.Context, transfer *models.LedgerTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransferRepository) ListRecent(ctx context.Context, limit int) ([]*models.LedgerTransfer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerTransfer), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) ListRecent(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	Events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Events = append(m.Events, event)
}

// OfType returns the recorded events of one type
func (m *MockEventPublisher) OfType(eventType events.EventType) []events.Event {
	var matched []events.Event
	for _, e := range m.Events {
		if e.Type() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return the repositories assigned to its fields.
type MockUnitOfWork struct {
	mock.Mock

	Accounts  *MockAccountRepository
	Pools     *MockPoolRepository
	Counters  *MockActivityCounterRepository
	Invites   *MockInviteRewardRepository
	Shop      *MockShopRepository
	Giveaways *MockGiveawayRepository
	Transfers *MockTransferRepository
	History   *MockBalanceHistoryRepository
	Bus       *MockEventPublisher
}

// NewMockUnitOfWork creates a mock unit of work with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Accounts:  new(MockAccountRepository),
		Pools:     new(MockPoolRepository),
		Counters:  new(MockActivityCounterRepository),
		Invites:   new(MockInviteRewardRepository),
		Shop:      new(MockShopRepository),
		Giveaways: new(MockGiveawayRepository),
		Transfers: new(MockTransferRepository),
		History:   new(MockBalanceHistoryRepository),
		Bus:       new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository { return m.Accounts }

func (m *MockUnitOfWork) PoolRepository() PoolRepository { return m.Pools }

func (m *MockUnitOfWork) ActivityCounterRepository() ActivityCounterRepository { return m.Counters }

func (m *MockUnitOfWork) InviteRewardRepository() InviteRewardRepository { return m.Invites }

func (m *MockUnitOfWork) ShopRepository() ShopRepository { return m.Shop }

func (m *MockUnitOfWork) GiveawayRepository() GiveawayRepository { return m.Giveaways }

func (m *MockUnitOfWork) TransferRepository() TransferRepository { return m.Transfers }

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository { return m.History }

func (m *MockUnitOfWork) EventBus() EventPublisher { return m.Bus }

// AssertRepositoryExpectations asserts expectations on the unit of work and every repository
func (m *MockUnitOfWork) AssertRepositoryExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.Accounts.AssertExpectations(t)
	m.Pools.AssertExpectations(t)
	m.Counters.AssertExpectations(t)
	m.Invites.AssertExpectations(t)
	m.Shop.AssertExpectations(t)
	m.Giveaways.AssertExpectations(t)
	m.Transfers.AssertExpectations(t)
	m.History.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) CreateForGuild(guildID int64) UnitOfWork {
	args := m.Called(guildID)
	return args.Get(0).(UnitOfWork)
}

// MockGiveawayTimers is a mock implementation of GiveawayTimers
type MockGiveawayTimers struct {
	mock.Mock
}

func (m *MockGiveawayTimers) Arm(guildID, giveawayID int64, fireAt time.Time) {
	m.Called(guildID, giveawayID, fireAt)
}

func (m *MockGiveawayTimers) Disarm(giveawayID int64) {
	m.Called(giveawayID)
}

// StubPicker returns a fixed winner list
type StubPicker struct {
	Winners []int64
}

func (p StubPicker) Pick(candidates []int64, n int) ([]int64, error) {
	if len(p.Winners) > n {
		return p.Winners[:n], nil
	}
	return p.Winners, nil
}
