package models

import "time"

// RewardGrant is the notification payload for a credited reward
type RewardGrant struct {
	GuildID   int64
	DiscordID int64 // Zero when the pool was credited
	Amount    int64
	Reason    TransactionType
}

// DailyClaimResult describes a successful daily claim
type DailyClaimResult struct {
	Amount         int64
	Streak         int
	NewBalance     int64
	NextEligibleAt time.Time
}

// PurchaseResult describes a completed shop purchase
type PurchaseResult struct {
	Item              *ShopItem
	NewBalance        int64
	RewardDescription string
}

// TransferResult reports balances after an admin transfer
type TransferResult struct {
	Amount          int64
	FromBalance     int64 // Pool balance when the pool was the source
	ToBalance       int64
	TransactionType TransactionType
}

// GiveawayOutcome summarizes how a giveaway ended
type GiveawayOutcome struct {
	Giveaway     *Giveaway
	Participants int
	Winners      []*GiveawayWinner
	Refunded     []int64
	Remainder    int64 // Returned to the pool
}

// AccountSnapshot is one exported account row
type AccountSnapshot struct {
	Account      *Account
	MessageCount int64
	VoiceMinutes int64
	GoodsOwned   int64
}

// Snapshot is a consistent read of one community's economy
type Snapshot struct {
	GuildID    int64
	TakenAt    time.Time
	Pool       *CommunityPool
	OpenEscrow int64
	Accounts   []*AccountSnapshot
}

// Total returns the conserved sum of pool, accounts and open escrow
func (s *Snapshot) Total() int64 {
	var total int64
	if s.Pool != nil {
		total += s.Pool.Balance
	}
	total += s.OpenEscrow
	for _, a := range s.Accounts {
		total += a.Account.Balance
	}
	return total
}
