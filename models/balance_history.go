package models

import (
	"time"
)

// TransactionType represents the reason for a balance change
type TransactionType string

const (
	TransactionTypeDailyClaim     TransactionType = "daily_claim"
	TransactionTypeMessageReward  TransactionType = "message_reward"
	TransactionTypeVoiceReward    TransactionType = "voice_reward"
	TransactionTypeInviteReward   TransactionType = "invite_reward"
	TransactionTypeBoostGrant     TransactionType = "boost_grant"
	TransactionTypeCommunityGrant TransactionType = "community_grant"
	TransactionTypeShopPurchase   TransactionType = "shop_purchase"
	TransactionTypeGiveawayEscrow TransactionType = "giveaway_escrow"
	TransactionTypeGiveawayEntry  TransactionType = "giveaway_entry"
	TransactionTypeGiveawayPrize  TransactionType = "giveaway_prize"
	TransactionTypeGiveawayRefund TransactionType = "giveaway_refund"
	TransactionTypeEscrowRelease  TransactionType = "escrow_release"
	TransactionTypeAdminTransfer  TransactionType = "admin_transfer"
	TransactionTypeAdminInjection TransactionType = "admin_injection"
	TransactionTypeAdminRemoval   TransactionType = "admin_removal"
	TransactionTypeAccountReset   TransactionType = "account_reset"
)

// IsMint reports whether the type moves money across the economy boundary
func (t TransactionType) IsMint() bool {
	switch t {
	case TransactionTypeBoostGrant, TransactionTypeCommunityGrant,
		TransactionTypeAdminInjection, TransactionTypeAdminRemoval, TransactionTypeAccountReset:
		return true
	}
	return false
}

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeGiveaway RelatedType = "giveaway"
	RelatedTypeShopItem RelatedType = "shop_item"
)

// BalanceHistory represents a historical change to a member's balance
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	DiscordID           int64           `db:"discord_id"`
	GuildID             int64           `db:"guild_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
