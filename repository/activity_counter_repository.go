package repository

import (
	"context"
	"fmt"

	"guildbank/models"
)

// ActivityCounterRepository implements the ActivityCounterRepository interface
type ActivityCounterRepository struct {
	q       queryable
	guildID int64
}

// newActivityCounterRepository creates a new activity counter repository with a transaction and guild scope
func newActivityCounterRepository(tx queryable, guildID int64) *ActivityCounterRepository {
	return &ActivityCounterRepository{q: tx, guildID: guildID}
}

// Increment adds delta to the counter. The upsert leaves the row locked for
// the rest of the transaction.
func (r *ActivityCounterRepository) Increment(ctx context.Context, discordID int64, kind models.CounterKind, delta int64) (*models.ActivityCounter, error) {
	query := `
		INSERT INTO activity_counters (guild_id, discord_id, kind, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, discord_id, kind)
		DO UPDATE SET total = activity_counters.total + EXCLUDED.total, updated_at = NOW()
		RETURNING guild_id, discord_id, kind, total, rewarded_watermark, updated_at
	`

	var c models.ActivityCounter
	err := r.q.QueryRow(ctx, query, r.guildID, discordID, kind, delta).Scan(
		&c.GuildID,
		&c.DiscordID,
		&c.Kind,
		&c.Total,
		&c.RewardedWatermark,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to increment %s counter for %d: %w", kind, discordID, err)
	}
	return &c, nil
}

// AdvanceWatermark moves the rewarded watermark forward. It never moves it
// backwards or past the total.
func (r *ActivityCounterRepository) AdvanceWatermark(ctx context.Context, discordID int64, kind models.CounterKind, watermark int64) error {
	query := `
		UPDATE activity_counters
		SET rewarded_watermark = $4, updated_at = NOW()
		WHERE guild_id = $1 AND discord_id = $2 AND kind = $3
		  AND rewarded_watermark <= $4 AND total >= $4
	`

	result, err := r.q.Exec(ctx, query, r.guildID, discordID, kind, watermark)
	if err != nil {
		return fmt.Errorf("failed to advance %s watermark for %d: %w", kind, discordID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("cannot advance %s watermark for %d to %d", kind, discordID, watermark)
	}
	return nil
}

// List returns every counter in the guild
func (r *ActivityCounterRepository) List(ctx context.Context) ([]*models.ActivityCounter, error) {
	query := `
		SELECT guild_id, discord_id, kind, total, rewarded_watermark, updated_at
		FROM activity_counters
		WHERE guild_id = $1
		ORDER BY discord_id, kind
	`

	rows, err := r.q.Query(ctx, query, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity counters: %w", err)
	}
	defer rows.Close()

	var counters []*models.ActivityCounter
	for rows.Next() {
		var c models.ActivityCounter
		if err := rows.Scan(&c.GuildID, &c.DiscordID, &c.Kind, &c.Total, &c.RewardedWatermark, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity counter: %w", err)
		}
		counters = append(counters, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity counters: %w", err)
	}
	return counters, nil
}
