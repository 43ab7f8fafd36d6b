package testutil

import (
	"time"

	"guildbank/models"
)

// CreateTestResourceItem creates an unsaved shop item granting a resource
func CreateTestResourceItem(name string, price int64, resource models.ResourceKind, quantity, stock int64) *models.ShopItem {
	return &models.ShopItem{
		Name:       name,
		Price:      price,
		RewardKind: models.RewardKindResource,
		Resource:   &resource,
		Quantity:   quantity,
		Stock:      stock,
	}
}

// CreateTestGoodItem creates an unsaved shop item granting itself as a good
func CreateTestGoodItem(name string, price, stock int64) *models.ShopItem {
	return &models.ShopItem{
		Name:       name,
		Price:      price,
		RewardKind: models.RewardKindGood,
		Quantity:   1,
		Stock:      stock,
	}
}

// CreateTestGiveaway creates an unsaved open giveaway ending after duration
func CreateTestGiveaway(creatorID, entryCost, totalPrize int64, winnerCount int, duration time.Duration) *models.Giveaway {
	return &models.Giveaway{
		CreatorID:   creatorID,
		State:       models.GiveawayStateOpen,
		EntryCost:   entryCost,
		TotalPrize:  totalPrize,
		WinnerCount: winnerCount,
		EndTime:     time.Now().UTC().Add(duration),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(discordID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   100,
		BalanceAfter:    90,
		ChangeAmount:    -10,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
