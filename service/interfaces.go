package service

import (
	"context"
	"time"

	"guildbank/events"
	"guildbank/models"
)

// AccountRepository defines data access for member accounts in one guild
type AccountRepository interface {
	// Ensure creates a zero-balance account if none exists
	Ensure(ctx context.Context, discordID int64) error

	// Get returns the account or nil if it does not exist
	Get(ctx context.Context, discordID int64) (*models.Account, error)

	// GetForUpdate returns the account with a row lock held until the transaction ends
	GetForUpdate(ctx context.Context, discordID int64) (*models.Account, error)

	// Credit adds amount, creating the account if needed, and returns the new balance
	Credit(ctx context.Context, discordID int64, amount int64) (int64, error)

	// Debit subtracts amount only if the balance covers it. ok is false when it does not.
	Debit(ctx context.Context, discordID int64, amount int64) (newBalance int64, ok bool, err error)

	// AddResource adds quantity of a resource to the account
	AddResource(ctx context.Context, discordID int64, kind models.ResourceKind, quantity int64) error

	// RecordDailyClaim stores the claim day and resulting streak
	RecordDailyClaim(ctx context.Context, discordID int64, day time.Time, streak int) error

	// List returns every account in the guild ordered by Discord ID
	List(ctx context.Context) ([]*models.Account, error)

	// ResetAll zeroes every field of every account in the guild and returns the
	// number of accounts and the total balance removed
	ResetAll(ctx context.Context) (accounts int64, removed int64, err error)
}

// PoolRepository defines data access for the guild's community pool
type PoolRepository interface {
	// Create inserts the pool with the given balance. created is false if it already existed.
	Create(ctx context.Context, balance int64) (created bool, err error)

	Get(ctx context.Context) (*models.CommunityPool, error)
	GetForUpdate(ctx context.Context) (*models.CommunityPool, error)

	// Credit adds amount, creating the pool if needed, and returns the new balance
	Credit(ctx context.Context, amount int64) (int64, error)

	// Debit subtracts amount only if the balance covers it
	Debit(ctx context.Context, amount int64) (newBalance int64, ok bool, err error)

	// SetRewardedBoosts overwrites the boost watermark
	SetRewardedBoosts(ctx context.Context, count int) error
}

// ActivityCounterRepository defines data access for activity counters
type ActivityCounterRepository interface {
	// Increment adds delta to the counter, creating it if needed, and returns the
	// locked row
	Increment(ctx context.Context, discordID int64, kind models.CounterKind, delta int64) (*models.ActivityCounter, error)

	// AdvanceWatermark moves the rewarded watermark forward to watermark
	AdvanceWatermark(ctx context.Context, discordID int64, kind models.CounterKind, watermark int64) error

	// List returns every counter in the guild
	List(ctx context.Context) ([]*models.ActivityCounter, error)
}

// InviteRewardRepository tracks which invitees have already earned their inviter a reward
type InviteRewardRepository interface {
	// Claim records the invitee. claimed is false if the invitee was already rewarded.
	Claim(ctx context.Context, inviteeID, inviterID, amount int64) (claimed bool, err error)
}

// ShopRepository defines data access for shop items and owned goods
type ShopRepository interface {
	Create(ctx context.Context, item *models.ShopItem) error
	GetByID(ctx context.Context, id int64) (*models.ShopItem, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.ShopItem, error)
	List(ctx context.Context) ([]*models.ShopItem, error)

	// DecrementStock takes one unit from finite stock. ok is false when none remain.
	DecrementStock(ctx context.Context, id int64) (ok bool, err error)

	AddGood(ctx context.Context, discordID, itemID, quantity int64) error
	ListGoods(ctx context.Context, discordID int64) ([]*models.InventoryGood, error)
}

// GiveawayRepository defines data access for giveaways and their entries
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id int64) (*models.Giveaway, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Giveaway, error)

	// GetByMessageID looks up a giveaway by its announcing message across all guilds
	GetByMessageID(ctx context.Context, messageID int64) (*models.Giveaway, error)

	SetMessage(ctx context.Context, id, channelID, messageID int64) error
	UpdateState(ctx context.Context, id int64, state models.GiveawayState, resolvedAt time.Time) error

	// AdjustEscrow applies delta to the escrow. A negative delta is applied only
	// if the escrow covers it; ok reports whether it was applied.
	AdjustEscrow(ctx context.Context, id int64, delta int64) (newEscrow int64, ok bool, err error)

	// AddParticipant records an entry. added is false for a duplicate entry.
	AddParticipant(ctx context.Context, id, discordID, entryCost int64) (added bool, err error)
	GetParticipants(ctx context.Context, id int64) ([]*models.GiveawayParticipant, error)

	AddWinner(ctx context.Context, winner *models.GiveawayWinner) error
	GetWinners(ctx context.Context, id int64) ([]*models.GiveawayWinner, error)

	// ListOpen returns open giveaways across all guilds ordered by end time
	ListOpen(ctx context.Context) ([]*models.Giveaway, error)

	// ListDue returns open giveaways across all guilds whose end time is at or before now
	ListDue(ctx context.Context, now time.Time) ([]*models.Giveaway, error)

	// SumOpenEscrow totals the escrow of the guild's open giveaways
	SumOpenEscrow(ctx context.Context) (int64, error)
}

// TransferRepository persists the ledger of transfers
type TransferRepository interface {
	// Record stores the transfer. A reused idempotency key yields ErrDuplicateTransfer.
	Record(ctx context.Context, transfer *models.LedgerTransfer) error

	ExistsByKey(ctx context.Context, key string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]*models.LedgerTransfer, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// ListRecent returns a member's latest entries, newest first
	ListRecent(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error)
}

// SnapshotReader reads a consistent view of one guild's economy
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, guildID int64) (*models.Snapshot, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages a transaction and the repositories bound to it
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	PoolRepository() PoolRepository
	ActivityCounterRepository() ActivityCounterRepository
	InviteRewardRepository() InviteRewardRepository
	ShopRepository() ShopRepository
	GiveawayRepository() GiveawayRepository
	TransferRepository() TransferRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates guild-scoped units of work. Guild 0 is used for
// cross-guild reads.
type UnitOfWorkFactory interface {
	CreateForGuild(guildID int64) UnitOfWork
}

// GiveawayTimers arms and disarms per-giveaway end timers
type GiveawayTimers interface {
	Arm(guildID, giveawayID int64, fireAt time.Time)
	Disarm(giveawayID int64)
}

// EconomyService covers pools, accounts and administrative ledger operations
type EconomyService interface {
	// RegisterCommunity creates the guild's pool with the starting grant. It is
	// a no-op for an already registered guild.
	RegisterCommunity(ctx context.Context, guildID int64) (created bool, err error)

	GetAccount(ctx context.Context, guildID, discordID int64) (*models.Account, error)
	GetPool(ctx context.Context, guildID int64) (*models.CommunityPool, error)
	GetInventory(ctx context.Context, guildID, discordID int64) ([]*models.InventoryGood, error)
	RecentHistory(ctx context.Context, guildID, discordID int64, limit int) ([]*models.BalanceHistory, error)

	// AdminTransfer moves funds from the pool or a member to a member
	AdminTransfer(ctx context.Context, guildID int64, from models.Party, toDiscordID int64, amount int64) (*models.TransferResult, error)

	// AdjustPool injects (positive) or removes (negative) funds from the pool
	AdjustPool(ctx context.Context, guildID int64, delta int64, adminID int64) (int64, error)

	// ResetAccounts zeroes every account in the guild
	ResetAccounts(ctx context.Context, guildID int64, adminID int64) (int64, error)
}

// RewardService converts platform activity into credits paid from the pool
type RewardService interface {
	MessageObserved(ctx context.Context, guildID, discordID int64) (*models.RewardGrant, error)
	VoiceSessionEnded(ctx context.Context, guildID, discordID int64, minutes int64) (*models.RewardGrant, error)
	InviteAccepted(ctx context.Context, guildID, inviterID, inviteeID int64) (*models.RewardGrant, error)
	BoostCountChanged(ctx context.Context, guildID int64, newCount int) (*models.RewardGrant, error)
	ClaimDaily(ctx context.Context, guildID, discordID int64) (*models.DailyClaimResult, error)

	// VoiceJoined starts tracking a voice session
	VoiceJoined(guildID, discordID int64, at time.Time)

	// VoiceLeft ends a tracked session and rewards its whole minutes
	VoiceLeft(ctx context.Context, guildID, discordID int64, at time.Time) (*models.RewardGrant, error)

	// MemberJoined compares live invite counts with the cached ones and rewards
	// the inviter whose invite was used
	MemberJoined(ctx context.Context, guildID, inviteeID int64, current []InviteUse) (*models.RewardGrant, error)

	SeedInvites(guildID int64, uses []InviteUse)
	SeedVoiceSessions(guildID int64, discordIDs []int64, at time.Time)

	// PruneVoiceSessions closes sessions open longer than maxAge, credits each
	// with maxAge worth of minutes and returns how many were closed
	PruneVoiceSessions(ctx context.Context, now time.Time, maxAge time.Duration) int
}

// ShopService sells items from a guild's shop
type ShopService interface {
	AddItem(ctx context.Context, guildID int64, item *models.ShopItem) (*models.ShopItem, error)
	ListItems(ctx context.Context, guildID int64) ([]*models.ShopItem, error)
	Purchase(ctx context.Context, guildID, discordID, itemID int64) (*models.PurchaseResult, error)
}

// CreateGiveawayParams holds the inputs for a new giveaway
type CreateGiveawayParams struct {
	GuildID         int64
	CreatorID       int64
	EntryCost       int64
	TotalPrize      int64
	WinnerCount     int
	Duration        time.Duration
	ExcludedRoleIDs []int64
	ChannelID       int64
}

// GiveawayService runs the giveaway lifecycle
type GiveawayService interface {
	CreateGiveaway(ctx context.Context, params CreateGiveawayParams) (*models.Giveaway, error)
	JoinGiveaway(ctx context.Context, guildID, giveawayID, discordID int64, roleIDs []int64) error
	ResolveGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.GiveawayOutcome, error)
	CancelGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.GiveawayOutcome, error)

	// CancelForDeletedMessage cancels the giveaway announced by messageID. It
	// returns nil, nil when the message did not belong to a giveaway.
	CancelForDeletedMessage(ctx context.Context, messageID int64) (*models.GiveawayOutcome, error)

	SetMessage(ctx context.Context, guildID, giveawayID, channelID, messageID int64) error

	// SetTimers attaches the scheduler armed for each new giveaway
	SetTimers(timers GiveawayTimers)

	GetGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.Giveaway, error)
	ListOpenGiveaways(ctx context.Context) ([]*models.Giveaway, error)

	// ListDueGiveaways returns open giveaways across all guilds whose end time
	// is at or before now
	ListDueGiveaways(ctx context.Context, now time.Time) ([]*models.Giveaway, error)
}

// ExportService produces snapshots of a guild's economy
type ExportService interface {
	Snapshot(ctx context.Context, guildID int64) (*models.Snapshot, error)
}
