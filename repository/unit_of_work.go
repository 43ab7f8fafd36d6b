package repository

import (
	"context"
	"errors"
	"fmt"

	"guildbank/database"
	"guildbank/events"
	"guildbank/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	guildID            int64
	transactionalBus   *events.TransactionalBus
	accountRepo        service.AccountRepository
	poolRepo           service.PoolRepository
	counterRepo        service.ActivityCounterRepository
	inviteRepo         service.InviteRewardRepository
	shopRepo           service.ShopRepository
	giveawayRepo       service.GiveawayRepository
	transferRepo       service.TransferRepository
	balanceHistoryRepo service.BalanceHistoryRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// CreateForGuild creates a unit of work whose repositories are scoped to guildID
func (f *unitOfWorkFactory) CreateForGuild(guildID int64) service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		guildID:          guildID,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", service.ErrStoreUnavailable, err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create guild-scoped repositories with the transaction
	u.accountRepo = newAccountRepository(tx, u.guildID)
	u.poolRepo = newPoolRepository(tx, u.guildID)
	u.counterRepo = newActivityCounterRepository(tx, u.guildID)
	u.inviteRepo = newInviteRewardRepository(tx, u.guildID)
	u.shopRepo = newShopRepository(tx, u.guildID)
	u.giveawayRepo = newGiveawayRepository(tx, u.guildID)
	u.transferRepo = newTransferRepository(tx, u.guildID)
	u.balanceHistoryRepo = newBalanceHistoryRepository(tx, u.guildID)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w: %w", service.ErrStoreUnavailable, err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func (u *unitOfWork) mustBegin() {
	if u.tx == nil {
		panic("unit of work not started - call Begin() first")
	}
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	u.mustBegin()
	return u.accountRepo
}

// PoolRepository returns the community pool repository for this unit of work
func (u *unitOfWork) PoolRepository() service.PoolRepository {
	u.mustBegin()
	return u.poolRepo
}

// ActivityCounterRepository returns the activity counter repository for this unit of work
func (u *unitOfWork) ActivityCounterRepository() service.ActivityCounterRepository {
	u.mustBegin()
	return u.counterRepo
}

// InviteRewardRepository returns the invite reward repository for this unit of work
func (u *unitOfWork) InviteRewardRepository() service.InviteRewardRepository {
	u.mustBegin()
	return u.inviteRepo
}

// ShopRepository returns the shop repository for this unit of work
func (u *unitOfWork) ShopRepository() service.ShopRepository {
	u.mustBegin()
	return u.shopRepo
}

// GiveawayRepository returns the giveaway repository for this unit of work
func (u *unitOfWork) GiveawayRepository() service.GiveawayRepository {
	u.mustBegin()
	return u.giveawayRepo
}

// TransferRepository returns the transfer repository for this unit of work
func (u *unitOfWork) TransferRepository() service.TransferRepository {
	u.mustBegin()
	return u.transferRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	u.mustBegin()
	return u.balanceHistoryRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
