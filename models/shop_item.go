package models

import (
	"fmt"
	"time"
)

// UnlimitedStock marks an item that never runs out
const UnlimitedStock int64 = -1

// RewardKind selects what a purchase grants
type RewardKind string

const (
	RewardKindResource RewardKind = "resource"
	RewardKindGood     RewardKind = "good"
)

// ShopItem is a purchasable entry in a community's shop.
// A resource reward adds Quantity of Resource to the buyer; a good reward adds
// Quantity of the item itself to the buyer's inventory.
type ShopItem struct {
	ID         int64         `db:"id"`
	GuildID    int64         `db:"guild_id"`
	Name       string        `db:"name"`
	Price      int64         `db:"price"`
	RewardKind RewardKind    `db:"reward_kind"`
	Resource   *ResourceKind `db:"resource"`
	Quantity   int64         `db:"quantity"`
	Stock      int64         `db:"stock"`
	CreatedAt  time.Time     `db:"created_at"`
}

// IsUnlimited reports whether the item uses the unlimited stock sentinel
func (i *ShopItem) IsUnlimited() bool {
	return i.Stock == UnlimitedStock
}

// InStock reports whether one more unit can be sold
func (i *ShopItem) InStock() bool {
	return i.IsUnlimited() || i.Stock > 0
}

// Validate checks the reward variant is well formed
func (i *ShopItem) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if i.Price <= 0 {
		return fmt.Errorf("item price must be positive")
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("item quantity must be positive")
	}
	if i.Stock < UnlimitedStock {
		return fmt.Errorf("item stock must be -1 (unlimited) or non-negative")
	}
	switch i.RewardKind {
	case RewardKindResource:
		if i.Resource == nil || !i.Resource.Valid() {
			return fmt.Errorf("resource reward requires a valid resource")
		}
	case RewardKindGood:
		if i.Resource != nil {
			return fmt.Errorf("good reward must not name a resource")
		}
	default:
		return fmt.Errorf("unknown reward kind %q", i.RewardKind)
	}
	return nil
}

// Describe renders the reward for a purchase confirmation
func (i *ShopItem) Describe() string {
	if i.RewardKind == RewardKindResource && i.Resource != nil {
		return fmt.Sprintf("%d %s", i.Quantity, *i.Resource)
	}
	if i.Quantity == 1 {
		return i.Name
	}
	return fmt.Sprintf("%d x %s", i.Quantity, i.Name)
}

// InventoryGood is a quantity of a flat good owned by a member
type InventoryGood struct {
	GuildID   int64  `db:"guild_id"`
	DiscordID int64  `db:"discord_id"`
	ItemID    int64  `db:"item_id"`
	Name      string `db:"name"`
	Quantity  int64  `db:"quantity"`
}
