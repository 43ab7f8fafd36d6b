package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"guildbank/models"

	"github.com/jackc/pgx/v5"
)

const balanceHistoryColumns = `id, discord_id, guild_id, balance_before, balance_after, change_amount,
	transaction_type, transaction_metadata, related_id, related_type, created_at`

// BalanceHistoryRepository stores the per-member audit trail written by every ledger movement
type BalanceHistoryRepository struct {
	q       queryable
	guildID int64
}

func newBalanceHistoryRepository(tx queryable, guildID int64) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx, guildID: guildID}
}

// Record appends an entry and fills in its ID, guild and timestamp
func (r *BalanceHistoryRepository) Record(ctx context.Context, entry *models.BalanceHistory) error {
	metadata, err := json.Marshal(entry.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for member %d: %w", entry.DiscordID, err)
	}

	err = r.q.QueryRow(ctx, `
		INSERT INTO balance_history
		(discord_id, guild_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, related_id, related_type)
		VALUES (@discord_id, @guild_id, @before, @after, @change, @type, @metadata, @related_id, @related_type)
		RETURNING id, created_at`,
		pgx.NamedArgs{
			"discord_id":   entry.DiscordID,
			"guild_id":     r.guildID,
			"before":       entry.BalanceBefore,
			"after":        entry.BalanceAfter,
			"change":       entry.ChangeAmount,
			"type":         entry.TransactionType,
			"metadata":     metadata,
			"related_id":   entry.RelatedID,
			"related_type": entry.RelatedType,
		},
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for member %d: %w", entry.DiscordID, err)
	}

	entry.GuildID = r.guildID
	return nil
}

// ListRecent returns up to limit of a member's entries, newest first
func (r *BalanceHistoryRepository) ListRecent(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+balanceHistoryColumns+` FROM balance_history
		WHERE guild_id = $1 AND discord_id = $2
		ORDER BY id DESC
		LIMIT $3`,
		r.guildID, discordID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history for member %d: %w", discordID, err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.BalanceHistory])
	if err != nil {
		return nil, fmt.Errorf("failed to read balance history for member %d: %w", discordID, err)
	}
	return entries, nil
}
