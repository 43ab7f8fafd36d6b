package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"guildbank/models"

	log "github.com/sirupsen/logrus"
)

// TransferRequest describes one movement of funds between two parties
type TransferRequest struct {
	From   models.Party
	To     models.Party
	Amount int64
	Type   models.TransactionType

	// IdempotencyKey, when set, makes a repeated request fail with
	// ErrDuplicateTransfer instead of moving funds twice.
	IdempotencyKey string

	RelatedID   *int64
	RelatedType *models.RelatedType
	Metadata    map[string]any
}

// TransferReceipt carries the balances left on each side after a transfer.
// Balances are zero for the external party.
type TransferReceipt struct {
	FromBalance int64
	ToBalance   int64
}

// Transfer moves req.Amount from req.From to req.To inside uow. The source is
// debited first with a conditional update so a short balance fails with
// ErrInsufficientFunds and leaves nothing changed. When the pool is a party
// its row is locked before any member row.
func Transfer(ctx context.Context, uow UnitOfWork, guildID int64, req TransferRequest) (*TransferReceipt, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.From == req.To {
		return nil, fmt.Errorf("cannot transfer from %s to itself", req.From)
	}

	if req.IdempotencyKey != "" {
		exists, err := uow.TransferRepository().ExistsByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTransfer, req.IdempotencyKey)
		}
	}

	if req.From.Kind == models.PartyPool || req.To.Kind == models.PartyPool {
		if _, err := uow.PoolRepository().GetForUpdate(ctx); err != nil {
			return nil, fmt.Errorf("failed to lock pool: %w", err)
		}
	}
	if req.From.Kind == models.PartyMember && req.To.Kind == models.PartyMember {
		if err := LockMembers(ctx, uow, req.From.ID, req.To.ID); err != nil {
			return nil, err
		}
	}

	receipt := &TransferReceipt{}
	var err error

	receipt.FromBalance, err = debit(ctx, uow, guildID, req)
	if err != nil {
		return nil, err
	}

	receipt.ToBalance, err = credit(ctx, uow, guildID, req)
	if err != nil {
		return nil, err
	}

	record := &models.LedgerTransfer{
		GuildID:         guildID,
		SourceKind:      req.From.Kind,
		SourceID:        req.From.IDPtr(),
		DestKind:        req.To.Kind,
		DestID:          req.To.IDPtr(),
		Amount:          req.Amount,
		TransactionType: req.Type,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		record.IdempotencyKey = &key
	}
	if err := uow.TransferRepository().Record(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"from":     req.From.String(),
		"to":       req.To.String(),
		"amount":   req.Amount,
		"type":     req.Type,
	}).Debug("Ledger transfer applied")

	return receipt, nil
}

func debit(ctx context.Context, uow UnitOfWork, guildID int64, req TransferRequest) (int64, error) {
	switch req.From.Kind {
	case models.PartyMember:
		balance, ok, err := uow.AccountRepository().Debit(ctx, req.From.ID, req.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to debit member %d: %w", req.From.ID, err)
		}
		if !ok {
			return 0, fmt.Errorf("%w: member %d cannot cover %d", ErrInsufficientFunds, req.From.ID, req.Amount)
		}
		err = RecordBalanceChange(ctx, uow, &models.BalanceHistory{
			GuildID:             guildID,
			DiscordID:           req.From.ID,
			BalanceBefore:       balance + req.Amount,
			BalanceAfter:        balance,
			ChangeAmount:        -req.Amount,
			TransactionType:     req.Type,
			TransactionMetadata: transferMetadata(req, req.To),
			RelatedID:           req.RelatedID,
			RelatedType:         req.RelatedType,
		})
		return balance, err

	case models.PartyPool:
		balance, ok, err := uow.PoolRepository().Debit(ctx, req.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to debit pool: %w", err)
		}
		if !ok {
			return 0, fmt.Errorf("%w: cannot cover %d", ErrInsufficientPoolFunds, req.Amount)
		}
		RecordPoolChange(uow, guildID, balance+req.Amount, balance, req.Type)
		return balance, nil

	case models.PartyEscrow:
		escrow, ok, err := uow.GiveawayRepository().AdjustEscrow(ctx, req.From.ID, -req.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to debit escrow of giveaway %d: %w", req.From.ID, err)
		}
		if !ok {
			return 0, reportInvariantViolation(log.Fields{
				"guild_id":    guildID,
				"giveaway_id": req.From.ID,
				"amount":      req.Amount,
			}, "escrow of giveaway %d cannot cover %d", req.From.ID, req.Amount)
		}
		return escrow, nil

	case models.PartyExternal:
		return 0, nil
	}
	return 0, fmt.Errorf("unknown source party %q", req.From.Kind)
}

func credit(ctx context.Context, uow UnitOfWork, guildID int64, req TransferRequest) (int64, error) {
	switch req.To.Kind {
	case models.PartyMember:
		balance, err := uow.AccountRepository().Credit(ctx, req.To.ID, req.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to credit member %d: %w", req.To.ID, err)
		}
		err = RecordBalanceChange(ctx, uow, &models.BalanceHistory{
			GuildID:             guildID,
			DiscordID:           req.To.ID,
			BalanceBefore:       balance - req.Amount,
			BalanceAfter:        balance,
			ChangeAmount:        req.Amount,
			TransactionType:     req.Type,
			TransactionMetadata: transferMetadata(req, req.From),
			RelatedID:           req.RelatedID,
			RelatedType:         req.RelatedType,
		})
		return balance, err

	case models.PartyPool:
		balance, err := uow.PoolRepository().Credit(ctx, req.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to credit pool: %w", err)
		}
		RecordPoolChange(uow, guildID, balance-req.Amount, balance, req.Type)
		return balance, nil

	case models.PartyEscrow:
		escrow, _, err := uow.GiveawayRepository().AdjustEscrow(ctx, req.To.ID, req.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to credit escrow of giveaway %d: %w", req.To.ID, err)
		}
		return escrow, nil

	case models.PartyExternal:
		return 0, nil
	}
	return 0, fmt.Errorf("unknown destination party %q", req.To.Kind)
}

func transferMetadata(req TransferRequest, counterparty models.Party) map[string]any {
	metadata := map[string]any{
		"counterparty": counterparty.String(),
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	return metadata
}

// LockMembers creates and row-locks the given accounts in ascending ID order
func LockMembers(ctx context.Context, uow UnitOfWork, discordIDs ...int64) error {
	ids := make([]int64, len(discordIDs))
	copy(ids, discordIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		if err := uow.AccountRepository().Ensure(ctx, id); err != nil {
			return fmt.Errorf("failed to ensure account %d: %w", id, err)
		}
		if _, err := uow.AccountRepository().GetForUpdate(ctx, id); err != nil {
			return fmt.Errorf("failed to lock account %d: %w", id, err)
		}
	}
	return nil
}

// IsBusinessError reports whether err is an expected rejection rather than a failure
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrInsufficientFunds, ErrAlreadyEntered, ErrAlreadyClaimedToday, ErrInvalidState,
		ErrNotFound, ErrExcluded, ErrClosed, ErrNotDue, ErrOutOfStock, ErrDuplicateTransfer,
		ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
