package models

import "time"

// CounterKind identifies a tracked activity
type CounterKind string

const (
	CounterMessages     CounterKind = "messages"
	CounterVoiceMinutes CounterKind = "voice_minutes"
)

// ActivityCounter tracks lifetime activity and how much of it has been paid out
type ActivityCounter struct {
	GuildID           int64       `db:"guild_id"`
	DiscordID         int64       `db:"discord_id"`
	Kind              CounterKind `db:"kind"`
	Total             int64       `db:"total"`
	RewardedWatermark int64       `db:"rewarded_watermark"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

// NetNew is the activity not yet covered by a reward
func (c *ActivityCounter) NetNew() int64 {
	return c.Total - c.RewardedWatermark
}

// InviteReward marks an invitee whose inviter has already been paid
type InviteReward struct {
	GuildID   int64     `db:"guild_id"`
	InviteeID int64     `db:"invitee_id"`
	InviterID int64     `db:"inviter_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}
