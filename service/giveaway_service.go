package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildbank/events"
	"guildbank/models"

	log "github.com/sirupsen/logrus"
)

type giveawayService struct {
	uowFactory UnitOfWorkFactory
	picker     WinnerPicker
	timers     GiveawayTimers
	now        func() time.Time
}

// NewGiveawayService creates a new giveaway service
func NewGiveawayService(uowFactory UnitOfWorkFactory, picker WinnerPicker) GiveawayService {
	return newGiveawayService(uowFactory, picker, time.Now)
}

func newGiveawayService(uowFactory UnitOfWorkFactory, picker WinnerPicker, now func() time.Time) *giveawayService {
	if picker == nil {
		picker = CryptoPicker{}
	}
	return &giveawayService{
		uowFactory: uowFactory,
		picker:     picker,
		now:        now,
	}
}

// SetTimers attaches the scheduler that fires giveaways at their end time
func (s *giveawayService) SetTimers(timers GiveawayTimers) {
	s.timers = timers
}

func (s *giveawayService) CreateGiveaway(ctx context.Context, params CreateGiveawayParams) (*models.Giveaway, error) {
	if params.EntryCost <= 0 || params.TotalPrize <= 0 {
		return nil, ErrInvalidAmount
	}
	if params.WinnerCount < 1 {
		return nil, fmt.Errorf("winner count must be at least 1, got %d", params.WinnerCount)
	}
	if params.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", params.Duration)
	}

	uow := s.uowFactory.CreateForGuild(params.GuildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaway := &models.Giveaway{
		GuildID:         params.GuildID,
		CreatorID:       params.CreatorID,
		State:           models.GiveawayStateOpen,
		EntryCost:       params.EntryCost,
		TotalPrize:      params.TotalPrize,
		WinnerCount:     params.WinnerCount,
		ExcludedRoleIDs: params.ExcludedRoleIDs,
		EndTime:         s.now().UTC().Add(params.Duration),
	}
	if params.ChannelID != 0 {
		channelID := params.ChannelID
		giveaway.ChannelID = &channelID
	}

	if err := uow.GiveawayRepository().Create(ctx, giveaway); err != nil {
		return nil, fmt.Errorf("failed to create giveaway: %w", err)
	}

	related := models.RelatedTypeGiveaway
	_, err := Transfer(ctx, uow, params.GuildID, TransferRequest{
		From:           models.PoolParty(),
		To:             models.EscrowParty(giveaway.ID),
		Amount:         params.TotalPrize,
		Type:           models.TransactionTypeGiveawayEscrow,
		IdempotencyKey: fmt.Sprintf("giveaway:escrow:%d", giveaway.ID),
		RelatedID:      &giveaway.ID,
		RelatedType:    &related,
	})
	if err != nil {
		return nil, err
	}
	giveaway.Escrow = params.TotalPrize

	uow.EventBus().Publish(stateEvent(giveaway, ""))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.timers != nil {
		s.timers.Arm(giveaway.GuildID, giveaway.ID, giveaway.EndTime)
	}

	log.WithFields(log.Fields{
		"guild_id":     giveaway.GuildID,
		"giveaway_id":  giveaway.ID,
		"total_prize":  giveaway.TotalPrize,
		"winner_count": giveaway.WinnerCount,
		"end_time":     giveaway.EndTime,
	}).Info("Giveaway created")

	return giveaway, nil
}

func (s *giveawayService) JoinGiveaway(ctx context.Context, guildID, giveawayID, discordID int64, roleIDs []int64) error {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaway, err := uow.GiveawayRepository().GetByIDForUpdate(ctx, giveawayID)
	if err != nil {
		return fmt.Errorf("failed to get giveaway: %w", err)
	}
	if giveaway == nil || giveaway.GuildID != guildID {
		return fmt.Errorf("%w: giveaway %d", ErrNotFound, giveawayID)
	}
	if !giveaway.IsOpen() || giveaway.IsDue(s.now()) {
		return fmt.Errorf("%w: giveaway %d", ErrClosed, giveawayID)
	}
	if giveaway.Excludes(roleIDs) {
		return fmt.Errorf("%w: giveaway %d", ErrExcluded, giveawayID)
	}

	added, err := uow.GiveawayRepository().AddParticipant(ctx, giveawayID, discordID, giveaway.EntryCost)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	if !added {
		return fmt.Errorf("%w: giveaway %d", ErrAlreadyEntered, giveawayID)
	}

	related := models.RelatedTypeGiveaway
	_, err = Transfer(ctx, uow, guildID, TransferRequest{
		From:           models.MemberParty(discordID),
		To:             models.PoolParty(),
		Amount:         giveaway.EntryCost,
		Type:           models.TransactionTypeGiveawayEntry,
		IdempotencyKey: fmt.Sprintf("giveaway:entry:%d:%d", giveawayID, discordID),
		RelatedID:      &giveaway.ID,
		RelatedType:    &related,
	})
	if err != nil {
		return err
	}

	uow.EventBus().Publish(events.GiveawayJoinedEvent{
		GuildID:    guildID,
		GiveawayID: giveawayID,
		DiscordID:  discordID,
		EntryCost:  giveaway.EntryCost,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ResolveGiveaway settles a giveaway whose end time has passed. Too few
// entrants cancel it with refunds; otherwise winners are drawn and paid.
func (s *giveawayService) ResolveGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.GiveawayOutcome, error) {
	return s.settle(ctx, guildID, giveawayID, false)
}

// CancelGiveaway ends an open giveaway early and refunds every entrant
func (s *giveawayService) CancelGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.GiveawayOutcome, error) {
	return s.settle(ctx, guildID, giveawayID, true)
}

func (s *giveawayService) CancelForDeletedMessage(ctx context.Context, messageID int64) (*models.GiveawayOutcome, error) {
	uow := s.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	giveaway, err := uow.GiveawayRepository().GetByMessageID(ctx, messageID)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to look up giveaway by message: %w", err)
	}
	if giveaway == nil {
		return nil, nil
	}
	if giveaway.State.IsTerminal() {
		return nil, nil
	}

	log.WithFields(log.Fields{
		"guild_id":    giveaway.GuildID,
		"giveaway_id": giveaway.ID,
		"message_id":  messageID,
	}).Info("Giveaway message deleted, cancelling")

	return s.CancelGiveaway(ctx, giveaway.GuildID, giveaway.ID)
}

func (s *giveawayService) settle(ctx context.Context, guildID, giveawayID int64, forceCancel bool) (*models.GiveawayOutcome, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaway, err := uow.GiveawayRepository().GetByIDForUpdate(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	if giveaway == nil || giveaway.GuildID != guildID {
		return nil, fmt.Errorf("%w: giveaway %d", ErrNotFound, giveawayID)
	}
	if giveaway.State.IsTerminal() {
		return nil, fmt.Errorf("%w: giveaway %d is already %s", ErrInvalidState, giveawayID, giveaway.State)
	}
	now := s.now().UTC()
	if !forceCancel && !giveaway.IsDue(now) {
		return nil, fmt.Errorf("%w: giveaway %d ends at %s", ErrNotDue, giveawayID, giveaway.EndTime)
	}

	// Escrow payouts touch members before the remainder reaches the pool, so
	// take the pool lock up front
	if _, err := uow.PoolRepository().GetForUpdate(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock pool: %w", err)
	}

	participants, err := uow.GiveawayRepository().GetParticipants(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	outcome := &models.GiveawayOutcome{
		Giveaway:     giveaway,
		Participants: len(participants),
	}
	oldState := giveaway.State

	if forceCancel || len(participants) < giveaway.WinnerCount {
		if err := s.cancelWithRefunds(ctx, uow, giveaway, participants, outcome); err != nil {
			return nil, err
		}
		giveaway.State = models.GiveawayStateCancelled
	} else {
		if err := s.drawAndPay(ctx, uow, giveaway, participants, outcome); err != nil {
			return nil, err
		}
		giveaway.State = models.GiveawayStateResolved
	}

	if err := uow.GiveawayRepository().UpdateState(ctx, giveawayID, giveaway.State, now); err != nil {
		return nil, fmt.Errorf("failed to update giveaway state: %w", err)
	}
	giveaway.ResolvedAt = &now
	giveaway.Escrow = 0

	uow.EventBus().Publish(stateEvent(giveaway, oldState))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.timers != nil {
		s.timers.Disarm(giveawayID)
	}

	log.WithFields(log.Fields{
		"guild_id":     guildID,
		"giveaway_id":  giveawayID,
		"state":        giveaway.State,
		"participants": len(participants),
		"winners":      len(outcome.Winners),
		"refunded":     len(outcome.Refunded),
		"remainder":    outcome.Remainder,
	}).Info("Giveaway settled")

	return outcome, nil
}

// cancelWithRefunds returns the escrow to the pool and then refunds every
// entry cost from the pool. If the pool cannot cover the refunds the whole
// settlement rolls back and the giveaway stays open for the next sweep.
func (s *giveawayService) cancelWithRefunds(ctx context.Context, uow UnitOfWork, giveaway *models.Giveaway, participants []*models.GiveawayParticipant, outcome *models.GiveawayOutcome) error {
	related := models.RelatedTypeGiveaway

	if giveaway.Escrow > 0 {
		_, err := Transfer(ctx, uow, giveaway.GuildID, TransferRequest{
			From:           models.EscrowParty(giveaway.ID),
			To:             models.PoolParty(),
			Amount:         giveaway.Escrow,
			Type:           models.TransactionTypeEscrowRelease,
			IdempotencyKey: fmt.Sprintf("giveaway:release:%d", giveaway.ID),
			RelatedID:      &giveaway.ID,
			RelatedType:    &related,
		})
		if err != nil {
			return fmt.Errorf("failed to release escrow: %w", err)
		}
		outcome.Remainder = giveaway.Escrow
	}

	for _, p := range participants {
		_, err := Transfer(ctx, uow, giveaway.GuildID, TransferRequest{
			From:           models.PoolParty(),
			To:             models.MemberParty(p.DiscordID),
			Amount:         p.EntryCost,
			Type:           models.TransactionTypeGiveawayRefund,
			IdempotencyKey: fmt.Sprintf("giveaway:refund:%d:%d", giveaway.ID, p.DiscordID),
			RelatedID:      &giveaway.ID,
			RelatedType:    &related,
		})
		if errors.Is(err, ErrInsufficientFunds) {
			return reportInvariantViolation(log.Fields{
				"guild_id":    giveaway.GuildID,
				"giveaway_id": giveaway.ID,
				"discord_id":  p.DiscordID,
			}, "pool cannot refund entry of %d", p.EntryCost)
		}
		if err != nil {
			return fmt.Errorf("failed to refund participant %d: %w", p.DiscordID, err)
		}
		outcome.Refunded = append(outcome.Refunded, p.DiscordID)
	}
	return nil
}

// drawAndPay picks winners, pays each the floor share of the prize from
// escrow and returns the undistributed remainder to the pool
func (s *giveawayService) drawAndPay(ctx context.Context, uow UnitOfWork, giveaway *models.Giveaway, participants []*models.GiveawayParticipant, outcome *models.GiveawayOutcome) error {
	candidates := make([]int64, len(participants))
	for i, p := range participants {
		candidates[i] = p.DiscordID
	}

	winnerIDs, err := s.picker.Pick(candidates, min(giveaway.WinnerCount, len(candidates)))
	if err != nil {
		return fmt.Errorf("failed to pick winners: %w", err)
	}

	related := models.RelatedTypeGiveaway
	payout := giveaway.PayoutPerWinner()
	remaining := giveaway.Escrow

	for _, winnerID := range winnerIDs {
		if payout > 0 {
			_, err := Transfer(ctx, uow, giveaway.GuildID, TransferRequest{
				From:           models.EscrowParty(giveaway.ID),
				To:             models.MemberParty(winnerID),
				Amount:         payout,
				Type:           models.TransactionTypeGiveawayPrize,
				IdempotencyKey: fmt.Sprintf("giveaway:prize:%d:%d", giveaway.ID, winnerID),
				RelatedID:      &giveaway.ID,
				RelatedType:    &related,
			})
			if err != nil {
				return fmt.Errorf("failed to pay winner %d: %w", winnerID, err)
			}
			remaining -= payout
		}

		winner := &models.GiveawayWinner{GiveawayID: giveaway.ID, DiscordID: winnerID, Payout: payout}
		if err := uow.GiveawayRepository().AddWinner(ctx, winner); err != nil {
			return fmt.Errorf("failed to record winner %d: %w", winnerID, err)
		}
		outcome.Winners = append(outcome.Winners, winner)
	}

	if remaining > 0 {
		_, err := Transfer(ctx, uow, giveaway.GuildID, TransferRequest{
			From:           models.EscrowParty(giveaway.ID),
			To:             models.PoolParty(),
			Amount:         remaining,
			Type:           models.TransactionTypeEscrowRelease,
			IdempotencyKey: fmt.Sprintf("giveaway:release:%d", giveaway.ID),
			RelatedID:      &giveaway.ID,
			RelatedType:    &related,
		})
		if err != nil {
			return fmt.Errorf("failed to return remainder: %w", err)
		}
		outcome.Remainder = remaining
	}
	return nil
}

func (s *giveawayService) SetMessage(ctx context.Context, guildID, giveawayID, channelID, messageID int64) error {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.GiveawayRepository().SetMessage(ctx, giveawayID, channelID, messageID); err != nil {
		return fmt.Errorf("failed to set giveaway message: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *giveawayService) GetGiveaway(ctx context.Context, guildID, giveawayID int64) (*models.Giveaway, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaway, err := uow.GiveawayRepository().GetByID(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	if giveaway == nil || giveaway.GuildID != guildID {
		return nil, fmt.Errorf("%w: giveaway %d", ErrNotFound, giveawayID)
	}
	return giveaway, nil
}

func (s *giveawayService) ListOpenGiveaways(ctx context.Context) ([]*models.Giveaway, error) {
	uow := s.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaways, err := uow.GiveawayRepository().ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open giveaways: %w", err)
	}
	return giveaways, nil
}

func (s *giveawayService) ListDueGiveaways(ctx context.Context, now time.Time) ([]*models.Giveaway, error) {
	uow := s.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	giveaways, err := uow.GiveawayRepository().ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due giveaways: %w", err)
	}
	return giveaways, nil
}

func stateEvent(g *models.Giveaway, oldState models.GiveawayState) events.GiveawayStateChangeEvent {
	event := events.GiveawayStateChangeEvent{
		GuildID:    g.GuildID,
		GiveawayID: g.ID,
		OldState:   oldState,
		NewState:   g.State,
	}
	if g.ChannelID != nil {
		event.ChannelID = *g.ChannelID
	}
	if g.MessageID != nil {
		event.MessageID = *g.MessageID
	}
	return event
}
