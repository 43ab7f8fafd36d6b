package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildbank/database"
	"guildbank/models"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q       queryable
	guildID int64
}

// NewAccountRepository creates a new account repository scoped to guildID
func NewAccountRepository(db *database.DB, guildID int64) *AccountRepository {
	return &AccountRepository{q: db.Pool, guildID: guildID}
}

// newAccountRepository creates a new account repository with a transaction and guild scope
func newAccountRepository(tx queryable, guildID int64) *AccountRepository {
	return &AccountRepository{q: tx, guildID: guildID}
}

const accountColumns = `guild_id, discord_id, balance, gold, wood, food, stone,
	       last_daily_claim, daily_streak, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.GuildID,
		&a.DiscordID,
		&a.Balance,
		&a.Gold,
		&a.Wood,
		&a.Food,
		&a.Stone,
		&a.LastDailyClaim,
		&a.DailyStreak,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Ensure creates a zero-balance account if none exists
func (r *AccountRepository) Ensure(ctx context.Context, discordID int64) error {
	query := `
		INSERT INTO accounts (guild_id, discord_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id, discord_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, r.guildID, discordID); err != nil {
		return fmt.Errorf("failed to ensure account %d: %w", discordID, err)
	}
	return nil
}

// Get retrieves an account, or nil if it does not exist
func (r *AccountRepository) Get(ctx context.Context, discordID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guild_id = $1 AND discord_id = $2`

	account, err := scanAccount(r.q.QueryRow(ctx, query, r.guildID, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", discordID, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account and locks its row
func (r *AccountRepository) GetForUpdate(ctx context.Context, discordID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guild_id = $1 AND discord_id = $2 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, r.guildID, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", discordID, err)
	}
	return account, nil
}

// Credit adds amount to the balance, creating the account if needed
func (r *AccountRepository) Credit(ctx context.Context, discordID int64, amount int64) (int64, error) {
	query := `
		INSERT INTO accounts (guild_id, discord_id, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, discord_id)
		DO UPDATE SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`

	var balance int64
	if err := r.q.QueryRow(ctx, query, r.guildID, discordID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to credit account %d: %w", discordID, err)
	}
	return balance, nil
}

// Debit subtracts amount only when the balance covers it
func (r *AccountRepository) Debit(ctx context.Context, discordID int64, amount int64) (int64, bool, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $3, updated_at = NOW()
		WHERE guild_id = $1 AND discord_id = $2 AND balance >= $3
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, r.guildID, discordID, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit account %d: %w", discordID, err)
	}
	return balance, true, nil
}

// AddResource adds quantity of a resource, creating the account if needed
func (r *AccountRepository) AddResource(ctx context.Context, discordID int64, kind models.ResourceKind, quantity int64) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown resource %q", kind)
	}

	// kind is validated above, so it is safe to use as a column name
	query := fmt.Sprintf(`
		INSERT INTO accounts (guild_id, discord_id, %[1]s)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, discord_id)
		DO UPDATE SET %[1]s = accounts.%[1]s + EXCLUDED.%[1]s, updated_at = NOW()
	`, kind)

	if _, err := r.q.Exec(ctx, query, r.guildID, discordID, quantity); err != nil {
		return fmt.Errorf("failed to add %s to account %d: %w", kind, discordID, err)
	}
	return nil
}

// RecordDailyClaim stores the claim day and streak
func (r *AccountRepository) RecordDailyClaim(ctx context.Context, discordID int64, day time.Time, streak int) error {
	query := `
		UPDATE accounts
		SET last_daily_claim = $3, daily_streak = $4, updated_at = NOW()
		WHERE guild_id = $1 AND discord_id = $2
	`

	result, err := r.q.Exec(ctx, query, r.guildID, discordID, day, streak)
	if err != nil {
		return fmt.Errorf("failed to record daily claim for %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", discordID)
	}
	return nil
}

// List returns every account in the guild
func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guild_id = $1 ORDER BY discord_id`

	rows, err := r.q.Query(ctx, query, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// ResetAll zeroes every account in the guild and clears owned goods. It
// returns the number of accounts and the total balance removed.
func (r *AccountRepository) ResetAll(ctx context.Context) (int64, int64, error) {
	query := `
		WITH locked AS (
			SELECT discord_id, balance FROM accounts WHERE guild_id = $1 FOR UPDATE
		), reset AS (
			UPDATE accounts a
			SET balance = 0, gold = 0, wood = 0, food = 0, stone = 0,
			    last_daily_claim = NULL, daily_streak = 0, updated_at = NOW()
			FROM locked
			WHERE a.guild_id = $1 AND a.discord_id = locked.discord_id
			RETURNING a.discord_id
		)
		SELECT COUNT(*), COALESCE(SUM(balance), 0)::BIGINT FROM locked
	`

	var count, removed int64
	if err := r.q.QueryRow(ctx, query, r.guildID).Scan(&count, &removed); err != nil {
		return 0, 0, fmt.Errorf("failed to reset accounts: %w", err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM inventory_goods WHERE guild_id = $1`, r.guildID); err != nil {
		return 0, 0, fmt.Errorf("failed to clear inventory: %w", err)
	}
	return count, removed, nil
}
