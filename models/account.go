package models

import "time"

// ResourceKind names one of the non-currency resources an account holds
type ResourceKind string

const (
	ResourceGold  ResourceKind = "gold"
	ResourceWood  ResourceKind = "wood"
	ResourceFood  ResourceKind = "food"
	ResourceStone ResourceKind = "stone"
)

// Valid reports whether r is a known resource
func (r ResourceKind) Valid() bool {
	switch r {
	case ResourceGold, ResourceWood, ResourceFood, ResourceStone:
		return true
	}
	return false
}

// Account is a member's economic state within one community
type Account struct {
	GuildID        int64      `db:"guild_id"`
	DiscordID      int64      `db:"discord_id"`
	Balance        int64      `db:"balance"`
	Gold           int64      `db:"gold"`
	Wood           int64      `db:"wood"`
	Food           int64      `db:"food"`
	Stone          int64      `db:"stone"`
	LastDailyClaim *time.Time `db:"last_daily_claim"`
	DailyStreak    int        `db:"daily_streak"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Resource returns the amount held of the given resource
func (a *Account) Resource(kind ResourceKind) int64 {
	switch kind {
	case ResourceGold:
		return a.Gold
	case ResourceWood:
		return a.Wood
	case ResourceFood:
		return a.Food
	case ResourceStone:
		return a.Stone
	}
	return 0
}

// CommunityPool is the shared treasury of one community
type CommunityPool struct {
	GuildID        int64     `db:"guild_id"`
	Balance        int64     `db:"balance"`
	RewardedBoosts int       `db:"rewarded_boosts"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
