package repository

import (
	"context"
	"errors"
	"fmt"

	"guildbank/models"

	"github.com/jackc/pgx/v5"
)

// PoolRepository implements the PoolRepository interface
type PoolRepository struct {
	q       queryable
	guildID int64
}

// newPoolRepository creates a new pool repository with a transaction and guild scope
func newPoolRepository(tx queryable, guildID int64) *PoolRepository {
	return &PoolRepository{q: tx, guildID: guildID}
}

// Create inserts the pool. created is false when the guild already has one.
func (r *PoolRepository) Create(ctx context.Context, balance int64) (bool, error) {
	query := `
		INSERT INTO community_pools (guild_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, r.guildID, balance)
	if err != nil {
		return false, fmt.Errorf("failed to create community pool: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PoolRepository) get(ctx context.Context, suffix string) (*models.CommunityPool, error) {
	query := `
		SELECT guild_id, balance, rewarded_boosts, created_at, updated_at
		FROM community_pools
		WHERE guild_id = $1
	` + suffix

	var pool models.CommunityPool
	err := r.q.QueryRow(ctx, query, r.guildID).Scan(
		&pool.GuildID,
		&pool.Balance,
		&pool.RewardedBoosts,
		&pool.CreatedAt,
		&pool.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community pool: %w", err)
	}
	return &pool, nil
}

// Get returns the pool, or nil for an unregistered guild
func (r *PoolRepository) Get(ctx context.Context) (*models.CommunityPool, error) {
	return r.get(ctx, "")
}

// GetForUpdate returns the pool with its row locked
func (r *PoolRepository) GetForUpdate(ctx context.Context) (*models.CommunityPool, error) {
	return r.get(ctx, "FOR UPDATE")
}

// Credit adds amount to the pool, creating it if needed
func (r *PoolRepository) Credit(ctx context.Context, amount int64) (int64, error) {
	query := `
		INSERT INTO community_pools (guild_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (guild_id)
		DO UPDATE SET balance = community_pools.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`

	var balance int64
	if err := r.q.QueryRow(ctx, query, r.guildID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to credit community pool: %w", err)
	}
	return balance, nil
}

// Debit subtracts amount only when the pool covers it
func (r *PoolRepository) Debit(ctx context.Context, amount int64) (int64, bool, error) {
	query := `
		UPDATE community_pools
		SET balance = balance - $2, updated_at = NOW()
		WHERE guild_id = $1 AND balance >= $2
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, r.guildID, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit community pool: %w", err)
	}
	return balance, true, nil
}

// SetRewardedBoosts overwrites the boost watermark
func (r *PoolRepository) SetRewardedBoosts(ctx context.Context, count int) error {
	query := `
		UPDATE community_pools
		SET rewarded_boosts = $2, updated_at = NOW()
		WHERE guild_id = $1
	`

	result, err := r.q.Exec(ctx, query, r.guildID, count)
	if err != nil {
		return fmt.Errorf("failed to set rewarded boosts: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("community pool for guild %d not found", r.guildID)
	}
	return nil
}
