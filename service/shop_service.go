package service

import (
	"context"
	"fmt"

	"guildbank/events"
	"guildbank/models"

	log "github.com/sirupsen/logrus"
)

type shopService struct {
	uowFactory UnitOfWorkFactory
}

// NewShopService creates a new shop service
func NewShopService(uowFactory UnitOfWorkFactory) ShopService {
	return &shopService{uowFactory: uowFactory}
}

func (s *shopService) AddItem(ctx context.Context, guildID int64, item *models.ShopItem) (*models.ShopItem, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shop item: %w", err)
	}
	item.GuildID = guildID

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.ShopRepository().Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create shop item: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return item, nil
}

func (s *shopService) ListItems(ctx context.Context, guildID int64) ([]*models.ShopItem, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	items, err := uow.ShopRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop items: %w", err)
	}
	return items, nil
}

// Purchase sells one unit of an item. The item row is locked first so two
// buyers racing for the last unit are serialized and the second sees it sold
// out. Balance is checked before stock, and the conditional debit stays the
// final guard. Any failure leaves balances, stock and inventory untouched.
func (s *shopService) Purchase(ctx context.Context, guildID, discordID, itemID int64) (*models.PurchaseResult, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	item, err := uow.ShopRepository().GetByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: shop item %d", ErrNotFound, itemID)
	}

	account, err := uow.AccountRepository().Get(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil || account.Balance < item.Price {
		return nil, fmt.Errorf("%w: %s costs %d", ErrInsufficientFunds, item.Name, item.Price)
	}
	if !item.InStock() {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, item.Name)
	}

	related := models.RelatedTypeShopItem
	receipt, err := Transfer(ctx, uow, guildID, TransferRequest{
		From:        models.MemberParty(discordID),
		To:          models.PoolParty(),
		Amount:      item.Price,
		Type:        models.TransactionTypeShopPurchase,
		RelatedID:   &item.ID,
		RelatedType: &related,
		Metadata:    map[string]any{"item": item.Name},
	})
	if err != nil {
		return nil, err
	}

	switch item.RewardKind {
	case models.RewardKindResource:
		if err := uow.AccountRepository().AddResource(ctx, discordID, *item.Resource, item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to grant resource: %w", err)
		}
	case models.RewardKindGood:
		if err := uow.ShopRepository().AddGood(ctx, discordID, item.ID, item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to grant good: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown reward kind %q", item.RewardKind)
	}

	if !item.IsUnlimited() {
		ok, err := uow.ShopRepository().DecrementStock(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrOutOfStock, item.Name)
		}
		item.Stock--
	}

	uow.EventBus().Publish(events.PurchaseEvent{
		GuildID:   guildID,
		DiscordID: discordID,
		ItemID:    item.ID,
		Price:     item.Price,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"discord_id": discordID,
		"item_id":    item.ID,
		"price":      item.Price,
	}).Info("Shop purchase completed")

	return &models.PurchaseResult{
		Item:              item,
		NewBalance:        receipt.FromBalance,
		RewardDescription: item.Describe(),
	}, nil
}
