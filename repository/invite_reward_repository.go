package repository

import (
	"context"
	"fmt"
)

// InviteRewardRepository implements the InviteRewardRepository interface
type InviteRewardRepository struct {
	q       queryable
	guildID int64
}

// newInviteRewardRepository creates a new invite reward repository with a transaction and guild scope
func newInviteRewardRepository(tx queryable, guildID int64) *InviteRewardRepository {
	return &InviteRewardRepository{q: tx, guildID: guildID}
}

// Claim records that inviteeID earned inviterID a reward. claimed is false
// if the invitee had already been counted.
func (r *InviteRewardRepository) Claim(ctx context.Context, inviteeID, inviterID, amount int64) (bool, error) {
	query := `
		INSERT INTO invite_rewards (guild_id, invitee_id, inviter_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, invitee_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, r.guildID, inviteeID, inviterID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to claim invite reward for %d: %w", inviteeID, err)
	}
	return result.RowsAffected() == 1, nil
}
