package repository

import (
	"context"
	"fmt"

	"guildbank/database"
	"guildbank/models"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepository reads a guild's whole economy in one repeatable-read
// transaction, so the pool, escrow and accounts it returns add up.
type SnapshotRepository struct {
	db *database.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ReadSnapshot returns the guild's pool, open escrow and every account with
// its activity totals. Pool is nil for an unregistered guild.
func (r *SnapshotRepository) ReadSnapshot(ctx context.Context, guildID int64) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{GuildID: guildID}

	err := r.db.WithReadSnapshot(ctx, func(tx pgx.Tx) error {
		var err error
		if snapshot.Pool, err = newPoolRepository(tx, guildID).Get(ctx); err != nil {
			return err
		}
		if snapshot.OpenEscrow, err = newGiveawayRepository(tx, guildID).SumOpenEscrow(ctx); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `SELECT NOW()`).Scan(&snapshot.TakenAt); err != nil {
			return fmt.Errorf("failed to read snapshot time: %w", err)
		}

		accounts, err := newAccountRepository(tx, guildID).List(ctx)
		if err != nil {
			return err
		}
		counters, err := newActivityCounterRepository(tx, guildID).List(ctx)
		if err != nil {
			return err
		}
		goods, err := r.goodsOwned(ctx, tx, guildID)
		if err != nil {
			return err
		}

		byMember := make(map[int64]*models.AccountSnapshot, len(accounts))
		for _, account := range accounts {
			row := &models.AccountSnapshot{Account: account, GoodsOwned: goods[account.DiscordID]}
			byMember[account.DiscordID] = row
			snapshot.Accounts = append(snapshot.Accounts, row)
		}
		for _, c := range counters {
			row, ok := byMember[c.DiscordID]
			if !ok {
				// Activity recorded before any credit still gets a row
				row = &models.AccountSnapshot{
					Account:    &models.Account{GuildID: guildID, DiscordID: c.DiscordID},
					GoodsOwned: goods[c.DiscordID],
				}
				byMember[c.DiscordID] = row
				snapshot.Accounts = append(snapshot.Accounts, row)
			}
			switch c.Kind {
			case models.CounterMessages:
				row.MessageCount = c.Total
			case models.CounterVoiceMinutes:
				row.VoiceMinutes = c.Total
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot of guild %d: %w", guildID, err)
	}

	snapshot.TakenAt = snapshot.TakenAt.UTC()
	return snapshot, nil
}

func (r *SnapshotRepository) goodsOwned(ctx context.Context, tx pgx.Tx, guildID int64) (map[int64]int64, error) {
	rows, err := tx.Query(ctx, `
		SELECT discord_id, SUM(quantity)::BIGINT
		FROM inventory_goods
		WHERE guild_id = $1
		GROUP BY discord_id
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to count goods: %w", err)
	}
	defer rows.Close()

	goods := make(map[int64]int64)
	for rows.Next() {
		var discordID, quantity int64
		if err := rows.Scan(&discordID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan goods count: %w", err)
		}
		goods[discordID] = quantity
	}
	return goods, rows.Err()
}
