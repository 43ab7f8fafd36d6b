package models

import (
	"fmt"
	"time"
)

// PartyKind identifies which ledger holds funds in a transfer
type PartyKind string

const (
	PartyMember PartyKind = "member"
	PartyPool   PartyKind = "pool"
	PartyEscrow PartyKind = "escrow"
	// PartyExternal is the outside world; only admin injections and boost
	// grants move funds across it.
	PartyExternal PartyKind = "external"
)

// Party is one side of a ledger transfer. ID is the member's Discord ID for
// PartyMember and the giveaway ID for PartyEscrow; it is unused otherwise.
type Party struct {
	Kind PartyKind
	ID   int64
}

// MemberParty addresses a member's account
func MemberParty(discordID int64) Party {
	return Party{Kind: PartyMember, ID: discordID}
}

// PoolParty addresses the community pool
func PoolParty() Party {
	return Party{Kind: PartyPool}
}

// EscrowParty addresses a giveaway's escrowed prize
func EscrowParty(giveawayID int64) Party {
	return Party{Kind: PartyEscrow, ID: giveawayID}
}

// ExternalParty addresses money entering or leaving the economy
func ExternalParty() Party {
	return Party{Kind: PartyExternal}
}

func (p Party) String() string {
	switch p.Kind {
	case PartyMember:
		return fmt.Sprintf("member:%d", p.ID)
	case PartyEscrow:
		return fmt.Sprintf("escrow:%d", p.ID)
	default:
		return string(p.Kind)
	}
}

// IDPtr returns the party's ID for storage, nil for pool and external
func (p Party) IDPtr() *int64 {
	if p.Kind == PartyMember || p.Kind == PartyEscrow {
		id := p.ID
		return &id
	}
	return nil
}

// LedgerTransfer is the persisted record of one transfer
type LedgerTransfer struct {
	ID              int64           `db:"id"`
	GuildID         int64           `db:"guild_id"`
	SourceKind      PartyKind       `db:"source_kind"`
	SourceID        *int64          `db:"source_id"`
	DestKind        PartyKind       `db:"dest_kind"`
	DestID          *int64          `db:"dest_id"`
	Amount          int64           `db:"amount"`
	TransactionType TransactionType `db:"transaction_type"`
	IdempotencyKey  *string         `db:"idempotency_key"`
	CreatedAt       time.Time       `db:"created_at"`
}
