package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildbank/models"

	"github.com/jackc/pgx/v5"
)

// GiveawayRepository implements the GiveawayRepository interface. Lookups by
// ID and message are not guild filtered; callers compare the returned guild.
type GiveawayRepository struct {
	q       queryable
	guildID int64
}

// newGiveawayRepository creates a new giveaway repository with a transaction and guild scope
func newGiveawayRepository(tx queryable, guildID int64) *GiveawayRepository {
	return &GiveawayRepository{q: tx, guildID: guildID}
}

const giveawayColumns = `id, guild_id, creator_id, state, entry_cost, total_prize, winner_count,
	       escrow, excluded_role_ids, end_time, channel_id, message_id, created_at, resolved_at`

func scanGiveaway(row pgx.Row) (*models.Giveaway, error) {
	var g models.Giveaway
	err := row.Scan(
		&g.ID,
		&g.GuildID,
		&g.CreatorID,
		&g.State,
		&g.EntryCost,
		&g.TotalPrize,
		&g.WinnerCount,
		&g.Escrow,
		&g.ExcludedRoleIDs,
		&g.EndTime,
		&g.ChannelID,
		&g.MessageID,
		&g.CreatedAt,
		&g.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GiveawayRepository) queryGiveaways(ctx context.Context, query string, args ...any) ([]*models.Giveaway, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var giveaways []*models.Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan giveaway: %w", err)
		}
		giveaways = append(giveaways, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating giveaways: %w", err)
	}
	return giveaways, nil
}

// Create inserts an open giveaway with an empty escrow and fills in its ID
func (r *GiveawayRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	query := `
		INSERT INTO giveaways (guild_id, creator_id, state, entry_cost, total_prize, winner_count,
		                       excluded_role_ids, end_time, channel_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, escrow, created_at
	`

	excluded := giveaway.ExcludedRoleIDs
	if excluded == nil {
		excluded = []int64{}
	}

	err := r.q.QueryRow(ctx, query,
		r.guildID,
		giveaway.CreatorID,
		giveaway.State,
		giveaway.EntryCost,
		giveaway.TotalPrize,
		giveaway.WinnerCount,
		excluded,
		giveaway.EndTime,
		giveaway.ChannelID,
	).Scan(&giveaway.ID, &giveaway.Escrow, &giveaway.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}

	giveaway.GuildID = r.guildID
	return nil
}

func (r *GiveawayRepository) getOne(ctx context.Context, query string, args ...any) (*models.Giveaway, error) {
	g, err := scanGiveaway(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// GetByID retrieves a giveaway, or nil
func (r *GiveawayRepository) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	g, err := r.getOne(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway %d: %w", id, err)
	}
	return g, nil
}

// GetByIDForUpdate retrieves a giveaway and locks its row
func (r *GiveawayRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Giveaway, error) {
	g, err := r.getOne(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock giveaway %d: %w", id, err)
	}
	return g, nil
}

// GetByMessageID finds the giveaway announced by messageID in any guild
func (r *GiveawayRepository) GetByMessageID(ctx context.Context, messageID int64) (*models.Giveaway, error) {
	g, err := r.getOne(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE message_id = $1`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway by message %d: %w", messageID, err)
	}
	return g, nil
}

// SetMessage stores where the giveaway was announced
func (r *GiveawayRepository) SetMessage(ctx context.Context, id, channelID, messageID int64) error {
	query := `
		UPDATE giveaways
		SET channel_id = $3, message_id = $4
		WHERE id = $1 AND guild_id = $2
	`

	result, err := r.q.Exec(ctx, query, id, r.guildID, channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to set message of giveaway %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("giveaway %d not found", id)
	}
	return nil
}

// UpdateState moves an open giveaway to a terminal state
func (r *GiveawayRepository) UpdateState(ctx context.Context, id int64, state models.GiveawayState, resolvedAt time.Time) error {
	query := `
		UPDATE giveaways
		SET state = $3, resolved_at = $4
		WHERE id = $1 AND guild_id = $2 AND state = 'open'
	`

	result, err := r.q.Exec(ctx, query, id, r.guildID, state, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update state of giveaway %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("giveaway %d is not open", id)
	}
	return nil
}

// AdjustEscrow applies delta to the escrow unless that would make it negative
func (r *GiveawayRepository) AdjustEscrow(ctx context.Context, id int64, delta int64) (int64, bool, error) {
	query := `
		UPDATE giveaways
		SET escrow = escrow + $3
		WHERE id = $1 AND guild_id = $2 AND escrow + $3 >= 0
		RETURNING escrow
	`

	var escrow int64
	err := r.q.QueryRow(ctx, query, id, r.guildID, delta).Scan(&escrow)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to adjust escrow of giveaway %d: %w", id, err)
	}
	return escrow, true, nil
}

// AddParticipant records an entry. added is false when the member already entered.
func (r *GiveawayRepository) AddParticipant(ctx context.Context, id, discordID, entryCost int64) (bool, error) {
	query := `
		INSERT INTO giveaway_participants (giveaway_id, discord_id, entry_cost)
		VALUES ($1, $2, $3)
		ON CONFLICT (giveaway_id, discord_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, id, discordID, entryCost)
	if err != nil {
		return false, fmt.Errorf("failed to add participant %d to giveaway %d: %w", discordID, id, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetParticipants returns the entries in join order
func (r *GiveawayRepository) GetParticipants(ctx context.Context, id int64) ([]*models.GiveawayParticipant, error) {
	query := `
		SELECT giveaway_id, discord_id, entry_cost, joined_at
		FROM giveaway_participants
		WHERE giveaway_id = $1
		ORDER BY joined_at, discord_id
	`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants of giveaway %d: %w", id, err)
	}
	defer rows.Close()

	var participants []*models.GiveawayParticipant
	for rows.Next() {
		var p models.GiveawayParticipant
		if err := rows.Scan(&p.GiveawayID, &p.DiscordID, &p.EntryCost, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

// AddWinner records a drawn winner
func (r *GiveawayRepository) AddWinner(ctx context.Context, winner *models.GiveawayWinner) error {
	query := `
		INSERT INTO giveaway_winners (giveaway_id, discord_id, payout)
		VALUES ($1, $2, $3)
	`

	if _, err := r.q.Exec(ctx, query, winner.GiveawayID, winner.DiscordID, winner.Payout); err != nil {
		return fmt.Errorf("failed to record winner %d of giveaway %d: %w", winner.DiscordID, winner.GiveawayID, err)
	}
	return nil
}

// GetWinners returns the winners of a giveaway
func (r *GiveawayRepository) GetWinners(ctx context.Context, id int64) ([]*models.GiveawayWinner, error) {
	query := `
		SELECT giveaway_id, discord_id, payout
		FROM giveaway_winners
		WHERE giveaway_id = $1
		ORDER BY discord_id
	`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners of giveaway %d: %w", id, err)
	}
	defer rows.Close()

	var winners []*models.GiveawayWinner
	for rows.Next() {
		var w models.GiveawayWinner
		if err := rows.Scan(&w.GiveawayID, &w.DiscordID, &w.Payout); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating winners: %w", err)
	}
	return winners, nil
}

// ListOpen returns open giveaways in every guild, soonest first
func (r *GiveawayRepository) ListOpen(ctx context.Context) ([]*models.Giveaway, error) {
	giveaways, err := r.queryGiveaways(ctx,
		`SELECT `+giveawayColumns+` FROM giveaways WHERE state = 'open' ORDER BY end_time, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open giveaways: %w", err)
	}
	return giveaways, nil
}

// ListDue returns open giveaways in every guild whose end time has passed
func (r *GiveawayRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Giveaway, error) {
	giveaways, err := r.queryGiveaways(ctx,
		`SELECT `+giveawayColumns+` FROM giveaways WHERE state = 'open' AND end_time <= $1 ORDER BY end_time, id`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due giveaways: %w", err)
	}
	return giveaways, nil
}

// SumOpenEscrow totals the escrow held by this guild's open giveaways
func (r *GiveawayRepository) SumOpenEscrow(ctx context.Context) (int64, error) {
	query := `
		SELECT COALESCE(SUM(escrow), 0)::BIGINT
		FROM giveaways
		WHERE guild_id = $1 AND state = 'open'
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, r.guildID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum open escrow: %w", err)
	}
	return total, nil
}
