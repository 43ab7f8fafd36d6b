package models

import "time"

// GiveawayState represents the lifecycle state of a giveaway
type GiveawayState string

const (
	GiveawayStateOpen      GiveawayState = "open"
	GiveawayStateResolved  GiveawayState = "resolved"
	GiveawayStateCancelled GiveawayState = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s GiveawayState) IsTerminal() bool {
	return s == GiveawayStateResolved || s == GiveawayStateCancelled
}

// Giveaway is a time-boxed paid lottery with a prize escrowed from the pool
type Giveaway struct {
	ID              int64         `db:"id"`
	GuildID         int64         `db:"guild_id"`
	CreatorID       int64         `db:"creator_id"`
	State           GiveawayState `db:"state"`
	EntryCost       int64         `db:"entry_cost"`
	TotalPrize      int64         `db:"total_prize"`
	WinnerCount     int           `db:"winner_count"`
	Escrow          int64         `db:"escrow"`
	ExcludedRoleIDs []int64       `db:"excluded_role_ids"`
	EndTime         time.Time     `db:"end_time"`
	ChannelID       *int64        `db:"channel_id"`
	MessageID       *int64        `db:"message_id"`
	CreatedAt       time.Time     `db:"created_at"`
	ResolvedAt      *time.Time    `db:"resolved_at"`
}

// IsOpen reports whether the giveaway still accepts entries
func (g *Giveaway) IsOpen() bool {
	return g.State == GiveawayStateOpen
}

// IsDue reports whether the end time has been reached
func (g *Giveaway) IsDue(now time.Time) bool {
	return !now.Before(g.EndTime)
}

// PayoutPerWinner is the floor share each winner receives
func (g *Giveaway) PayoutPerWinner() int64 {
	if g.WinnerCount <= 0 {
		return 0
	}
	return g.TotalPrize / int64(g.WinnerCount)
}

// Excludes reports whether any of roleIDs is on the exclusion list
func (g *Giveaway) Excludes(roleIDs []int64) bool {
	if len(g.ExcludedRoleIDs) == 0 {
		return false
	}
	excluded := make(map[int64]struct{}, len(g.ExcludedRoleIDs))
	for _, id := range g.ExcludedRoleIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range roleIDs {
		if _, ok := excluded[id]; ok {
			return true
		}
	}
	return false
}

// GiveawayParticipant is one paid entry
type GiveawayParticipant struct {
	GiveawayID int64     `db:"giveaway_id"`
	DiscordID  int64     `db:"discord_id"`
	EntryCost  int64     `db:"entry_cost"`
	JoinedAt   time.Time `db:"joined_at"`
}

// GiveawayWinner records a drawn winner and their payout
type GiveawayWinner struct {
	GiveawayID int64 `db:"giveaway_id"`
	DiscordID  int64 `db:"discord_id"`
	Payout     int64 `db:"payout"`
}
