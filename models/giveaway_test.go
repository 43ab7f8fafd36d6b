package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGiveaway_PayoutPerWinner(t *testing.T) {
	tests := []struct {
		prize   int64
		winners int
		want    int64
	}{
		{prize: 100, winners: 3, want: 33},
		{prize: 100, winners: 1, want: 100},
		{prize: 5, winners: 10, want: 0},
		{prize: 100, winners: 0, want: 0},
	}
	for _, tt := range tests {
		g := &Giveaway{TotalPrize: tt.prize, WinnerCount: tt.winners}
		assert.Equal(t, tt.want, g.PayoutPerWinner(), "prize=%d winners=%d", tt.prize, tt.winners)
	}
}

func TestGiveaway_Excludes(t *testing.T) {
	g := &Giveaway{ExcludedRoleIDs: []int64{10, 20}}

	assert.True(t, g.Excludes([]int64{1, 20}))
	assert.False(t, g.Excludes([]int64{1, 2}))
	assert.False(t, g.Excludes(nil))
	assert.False(t, (&Giveaway{}).Excludes([]int64{10}))
}

func TestGiveaway_IsDue(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := &Giveaway{EndTime: end}

	assert.False(t, g.IsDue(end.Add(-time.Second)))
	assert.True(t, g.IsDue(end))
	assert.True(t, g.IsDue(end.Add(time.Minute)))
}

func TestGiveawayState_IsTerminal(t *testing.T) {
	assert.False(t, GiveawayStateOpen.IsTerminal())
	assert.True(t, GiveawayStateResolved.IsTerminal())
	assert.True(t, GiveawayStateCancelled.IsTerminal())
}

func TestShopItem_Validate(t *testing.T) {
	gold := ResourceGold
	bogus := ResourceKind("diamonds")

	valid := &ShopItem{Name: "Gold pouch", Price: 10, RewardKind: RewardKindResource, Resource: &gold, Quantity: 5, Stock: UnlimitedStock}
	assert.NoError(t, valid.Validate())

	good := &ShopItem{Name: "Banner", Price: 50, RewardKind: RewardKindGood, Quantity: 1, Stock: 3}
	assert.NoError(t, good.Validate())

	assert.Error(t, (&ShopItem{Name: "x", Price: 0, RewardKind: RewardKindGood, Quantity: 1}).Validate())
	assert.Error(t, (&ShopItem{Name: "x", Price: 1, RewardKind: RewardKindGood, Quantity: 1, Stock: -2}).Validate())
	assert.Error(t, (&ShopItem{Name: "x", Price: 1, RewardKind: RewardKindResource, Resource: &bogus, Quantity: 1}).Validate())
	assert.Error(t, (&ShopItem{Name: "x", Price: 1, RewardKind: RewardKindGood, Resource: &gold, Quantity: 1}).Validate())
	assert.Error(t, (&ShopItem{Name: "x", Price: 1, RewardKind: "mystery", Quantity: 1}).Validate())
}

func TestShopItem_StockAndDescribe(t *testing.T) {
	wood := ResourceWood
	resource := &ShopItem{Name: "Lumber", RewardKind: RewardKindResource, Resource: &wood, Quantity: 20, Stock: UnlimitedStock}
	assert.True(t, resource.IsUnlimited())
	assert.True(t, resource.InStock())
	assert.Equal(t, "20 wood", resource.Describe())

	soldOut := &ShopItem{Name: "Crown", RewardKind: RewardKindGood, Quantity: 1, Stock: 0}
	assert.False(t, soldOut.InStock())
	assert.Equal(t, "Crown", soldOut.Describe())

	bundle := &ShopItem{Name: "Torch", RewardKind: RewardKindGood, Quantity: 3, Stock: 1}
	assert.Equal(t, "3 x Torch", bundle.Describe())
}

func TestParty(t *testing.T) {
	assert.Equal(t, "member:42", MemberParty(42).String())
	assert.Equal(t, "escrow:7", EscrowParty(7).String())
	assert.Equal(t, "pool", PoolParty().String())

	assert.Nil(t, PoolParty().IDPtr())
	assert.Equal(t, int64(42), *MemberParty(42).IDPtr())
}

func TestSnapshot_Total(t *testing.T) {
	s := &Snapshot{
		Pool:       &CommunityPool{Balance: 1000},
		OpenEscrow: 250,
		Accounts: []*AccountSnapshot{
			{Account: &Account{Balance: 30}},
			{Account: &Account{Balance: 20}},
		},
	}
	assert.Equal(t, int64(1300), s.Total())
}

func TestTransactionType_IsMint(t *testing.T) {
	assert.True(t, TransactionTypeBoostGrant.IsMint())
	assert.True(t, TransactionTypeAdminInjection.IsMint())
	assert.False(t, TransactionTypeDailyClaim.IsMint())
	assert.False(t, TransactionTypeGiveawayPrize.IsMint())
}
