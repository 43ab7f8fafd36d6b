package service

import (
	"context"
	"fmt"

	"guildbank/events"
	"guildbank/models"

	log "github.com/sirupsen/logrus"
)

type economyService struct {
	uowFactory   UnitOfWorkFactory
	startingPool int64
}

// NewEconomyService creates a new economy service. startingPool is granted to
// each newly registered community.
func NewEconomyService(uowFactory UnitOfWorkFactory, startingPool int64) EconomyService {
	return &economyService{
		uowFactory:   uowFactory,
		startingPool: startingPool,
	}
}

func (s *economyService) RegisterCommunity(ctx context.Context, guildID int64) (bool, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	created, err := uow.PoolRepository().Create(ctx, 0)
	if err != nil {
		return false, fmt.Errorf("failed to create community pool: %w", err)
	}
	if !created {
		return false, nil
	}

	if s.startingPool > 0 {
		_, err := Transfer(ctx, uow, guildID, TransferRequest{
			From:           models.ExternalParty(),
			To:             models.PoolParty(),
			Amount:         s.startingPool,
			Type:           models.TransactionTypeCommunityGrant,
			IdempotencyKey: fmt.Sprintf("community_grant:%d", guildID),
		})
		if err != nil {
			return false, fmt.Errorf("failed to grant starting pool: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id":      guildID,
		"starting_pool": s.startingPool,
	}).Info("Registered community")
	return true, nil
}

func (s *economyService) GetAccount(ctx context.Context, guildID, discordID int64) (*models.Account, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().Get(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		// Accounts are created lazily, so a missing one reads as empty
		account = &models.Account{GuildID: guildID, DiscordID: discordID}
	}
	return account, nil
}

func (s *economyService) GetPool(ctx context.Context, guildID int64) (*models.CommunityPool, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pool, err := uow.PoolRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: community %d is not registered", ErrNotFound, guildID)
	}
	return pool, nil
}

func (s *economyService) GetInventory(ctx context.Context, guildID, discordID int64) ([]*models.InventoryGood, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	goods, err := uow.ShopRepository().ListGoods(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goods: %w", err)
	}
	return goods, nil
}

func (s *economyService) RecentHistory(ctx context.Context, guildID, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().ListRecent(ctx, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}

func (s *economyService) AdminTransfer(ctx context.Context, guildID int64, from models.Party, toDiscordID int64, amount int64) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if from.Kind != models.PartyPool && from.Kind != models.PartyMember {
		return nil, fmt.Errorf("admin transfers must come from the pool or a member, got %s", from)
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	receipt, err := Transfer(ctx, uow, guildID, TransferRequest{
		From:   from,
		To:     models.MemberParty(toDiscordID),
		Amount: amount,
		Type:   models.TransactionTypeAdminTransfer,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.TransferResult{
		Amount:          amount,
		FromBalance:     receipt.FromBalance,
		ToBalance:       receipt.ToBalance,
		TransactionType: models.TransactionTypeAdminTransfer,
	}, nil
}

func (s *economyService) AdjustPool(ctx context.Context, guildID int64, delta int64, adminID int64) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}

	req := TransferRequest{
		From:     models.ExternalParty(),
		To:       models.PoolParty(),
		Amount:   delta,
		Type:     models.TransactionTypeAdminInjection,
		Metadata: map[string]any{"admin_id": adminID},
	}
	if delta < 0 {
		req.From, req.To = models.PoolParty(), models.ExternalParty()
		req.Amount = -delta
		req.Type = models.TransactionTypeAdminRemoval
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	receipt, err := Transfer(ctx, uow, guildID, req)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	balance := receipt.ToBalance
	if delta < 0 {
		balance = receipt.FromBalance
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"admin_id": adminID,
		"delta":    delta,
		"balance":  balance,
	}).Info("Pool adjusted by administrator")
	return balance, nil
}

func (s *economyService) ResetAccounts(ctx context.Context, guildID int64, adminID int64) (int64, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	count, removed, err := uow.AccountRepository().ResetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reset accounts: %w", err)
	}

	uow.EventBus().Publish(events.AccountsResetEvent{
		GuildID:  guildID,
		AdminID:  adminID,
		Accounts: count,
		Removed:  removed,
	})

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"admin_id": adminID,
		"accounts": count,
		"removed":  removed,
	}).Warn("Accounts reset by administrator")
	return count, nil
}
