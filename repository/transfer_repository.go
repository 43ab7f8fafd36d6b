package repository

import (
	"context"
	"errors"
	"fmt"

	"guildbank/models"
	"guildbank/service"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// TransferRepository implements the TransferRepository interface
type TransferRepository struct {
	q       queryable
	guildID int64
}

// newTransferRepository creates a new transfer repository with a transaction and guild scope
func newTransferRepository(tx queryable, guildID int64) *TransferRepository {
	return &TransferRepository{q: tx, guildID: guildID}
}

// Record stores a transfer. A reused idempotency key returns ErrDuplicateTransfer.
func (r *TransferRepository) Record(ctx context.Context, transfer *models.LedgerTransfer) error {
	query := `
		INSERT INTO ledger_transfers
		(guild_id, source_kind, source_id, dest_kind, dest_id, amount, transaction_type, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		r.guildID,
		transfer.SourceKind,
		transfer.SourceID,
		transfer.DestKind,
		transfer.DestID,
		transfer.Amount,
		transfer.TransactionType,
		transfer.IdempotencyKey,
	).Scan(&transfer.ID, &transfer.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", service.ErrDuplicateTransfer, *transfer.IdempotencyKey)
	}
	if err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}

	transfer.GuildID = r.guildID
	return nil
}

// ExistsByKey reports whether a transfer with this idempotency key exists
func (r *TransferRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_transfers WHERE idempotency_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return exists, nil
}

// ListRecent returns the guild's latest transfers, newest first
func (r *TransferRepository) ListRecent(ctx context.Context, limit int) ([]*models.LedgerTransfer, error) {
	query := `
		SELECT id, guild_id, source_kind, source_id, dest_kind, dest_id, amount,
		       transaction_type, idempotency_key, created_at
		FROM ledger_transfers
		WHERE guild_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, r.guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.LedgerTransfer
	for rows.Next() {
		var t models.LedgerTransfer
		err := rows.Scan(
			&t.ID,
			&t.GuildID,
			&t.SourceKind,
			&t.SourceID,
			&t.DestKind,
			&t.DestID,
			&t.Amount,
			&t.TransactionType,
			&t.IdempotencyKey,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}
	return transfers, nil
}
