package service

import (
	"context"
	"fmt"

	"guildbank/events"
	"guildbank/models"
)

// RecordBalanceChange records a balance history entry and queues the matching
// event. Every change to a member balance goes through here.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		GuildID:         history.GuildID,
		DiscordID:       history.DiscordID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	return nil
}

// RecordPoolChange queues a pool change event
func RecordPoolChange(uow UnitOfWork, guildID, oldBalance, newBalance int64, txType models.TransactionType) {
	uow.EventBus().Publish(events.PoolChangeEvent{
		GuildID:         guildID,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
		TransactionType: txType,
		ChangeAmount:    newBalance - oldBalance,
	})
}
