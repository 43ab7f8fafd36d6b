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

type rewardService struct {
	uowFactory UnitOfWorkFactory
	voice      *VoiceTracker
	invites    *InviteTracker
	now        func() time.Time
}

// NewRewardService creates a new reward service
func NewRewardService(uowFactory UnitOfWorkFactory) RewardService {
	return newRewardService(uowFactory, time.Now)
}

func newRewardService(uowFactory UnitOfWorkFactory, now func() time.Time) *rewardService {
	return &rewardService{
		uowFactory: uowFactory,
		voice:      NewVoiceTracker(),
		invites:    NewInviteTracker(),
		now:        now,
	}
}

func (s *rewardService) MessageObserved(ctx context.Context, guildID, discordID int64) (*models.RewardGrant, error) {
	return s.accrue(ctx, guildID, discordID, models.CounterMessages, 1,
		MessageThreshold, MessageRewardRate, models.TransactionTypeMessageReward)
}

func (s *rewardService) VoiceSessionEnded(ctx context.Context, guildID, discordID int64, minutes int64) (*models.RewardGrant, error) {
	if minutes <= 0 {
		return nil, nil
	}
	return s.accrue(ctx, guildID, discordID, models.CounterVoiceMinutes, minutes,
		VoiceMinuteThreshold, VoiceRewardRate, models.TransactionTypeVoiceReward)
}

// accrue increments a counter and pays any whole thresholds crossed. The
// counter row stays locked for the transaction, so concurrent events for one
// member are applied one after another. When the pool cannot fund the reward
// the increment is kept and the watermark stays put.
func (s *rewardService) accrue(ctx context.Context, guildID, discordID int64, kind models.CounterKind, delta, threshold, rate int64, txType models.TransactionType) (*models.RewardGrant, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	counter, err := uow.ActivityCounterRepository().Increment(ctx, discordID, kind, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to increment %s counter: %w", kind, err)
	}
	if counter.RewardedWatermark > counter.Total {
		return nil, reportInvariantViolation(log.Fields{
			"guild_id":   guildID,
			"discord_id": discordID,
			"kind":       kind,
		}, "watermark %d exceeds total %d", counter.RewardedWatermark, counter.Total)
	}

	amount, consumed := ThresholdReward(counter.NetNew(), threshold, rate)
	if amount == 0 {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil, nil
	}

	watermark := counter.RewardedWatermark + consumed
	_, err = Transfer(ctx, uow, guildID, TransferRequest{
		From:           models.PoolParty(),
		To:             models.MemberParty(discordID),
		Amount:         amount,
		Type:           txType,
		IdempotencyKey: fmt.Sprintf("reward:%s:%d:%d:%d", kind, guildID, discordID, watermark),
		Metadata:       map[string]any{"watermark": watermark},
	})
	if errors.Is(err, ErrInsufficientFunds) {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"discord_id": discordID,
			"kind":       kind,
			"amount":     amount,
		}).Warn("Pool cannot fund activity reward, deferring")
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pay %s reward: %w", kind, err)
	}

	if err := uow.ActivityCounterRepository().AdvanceWatermark(ctx, discordID, kind, watermark); err != nil {
		return nil, fmt.Errorf("failed to advance %s watermark: %w", kind, err)
	}

	grant := &models.RewardGrant{GuildID: guildID, DiscordID: discordID, Amount: amount, Reason: txType}
	uow.EventBus().Publish(rewardEvent(grant))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return grant, nil
}

func (s *rewardService) InviteAccepted(ctx context.Context, guildID, inviterID, inviteeID int64) (*models.RewardGrant, error) {
	if inviterID == 0 || inviterID == inviteeID {
		return nil, nil
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claimed, err := uow.InviteRewardRepository().Claim(ctx, inviteeID, inviterID, InviteRewardAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to claim invite reward: %w", err)
	}
	if !claimed {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"invitee_id": inviteeID,
		}).Debug("Invitee already rewarded")
		return nil, nil
	}

	_, err = Transfer(ctx, uow, guildID, TransferRequest{
		From:           models.PoolParty(),
		To:             models.MemberParty(inviterID),
		Amount:         InviteRewardAmount,
		Type:           models.TransactionTypeInviteReward,
		IdempotencyKey: fmt.Sprintf("invite:%d:%d", guildID, inviteeID),
		Metadata:       map[string]any{"invitee_id": inviteeID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pay invite reward: %w", err)
	}

	grant := &models.RewardGrant{GuildID: guildID, DiscordID: inviterID, Amount: InviteRewardAmount, Reason: models.TransactionTypeInviteReward}
	uow.EventBus().Publish(rewardEvent(grant))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return grant, nil
}

// BoostCountChanged credits the pool for boosts beyond the watermark and then
// sets the watermark to newCount, so a drop followed by a rise pays again.
func (s *rewardService) BoostCountChanged(ctx context.Context, guildID int64, newCount int) (*models.RewardGrant, error) {
	if newCount < 0 {
		return nil, fmt.Errorf("boost count must not be negative, got %d", newCount)
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pool, err := uow.PoolRepository().GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock pool: %w", err)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: community %d is not registered", ErrNotFound, guildID)
	}

	amount := BoostReward(pool.RewardedBoosts, newCount)
	if err := uow.PoolRepository().SetRewardedBoosts(ctx, newCount); err != nil {
		return nil, fmt.Errorf("failed to update boost watermark: %w", err)
	}

	var grant *models.RewardGrant
	if amount > 0 {
		_, err := Transfer(ctx, uow, guildID, TransferRequest{
			From:     models.ExternalParty(),
			To:       models.PoolParty(),
			Amount:   amount,
			Type:     models.TransactionTypeBoostGrant,
			Metadata: map[string]any{"boosts": newCount, "previous": pool.RewardedBoosts},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit boost reward: %w", err)
		}
		grant = &models.RewardGrant{GuildID: guildID, Amount: amount, Reason: models.TransactionTypeBoostGrant}
		uow.EventBus().Publish(rewardEvent(grant))
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"previous": pool.RewardedBoosts,
		"current":  newCount,
		"reward":   amount,
	}).Info("Boost count changed")

	return grant, nil
}

func (s *rewardService) ClaimDaily(ctx context.Context, guildID, discordID int64) (*models.DailyClaimResult, error) {
	now := s.now().UTC()

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Pool before account keeps the lock order used by Transfer
	if _, err := uow.PoolRepository().GetForUpdate(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock pool: %w", err)
	}
	if err := uow.AccountRepository().Ensure(ctx, discordID); err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}
	account, err := uow.AccountRepository().GetForUpdate(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, discordID)
	}

	if account.LastDailyClaim != nil && SameUTCDay(*account.LastDailyClaim, now) {
		return nil, &DailyCooldownError{NextEligibleAt: NextUTCMidnight(now)}
	}

	streak := NextDailyStreak(account.LastDailyClaim, account.DailyStreak, now)
	amount := DailyReward(streak)
	today := UTCDay(now)

	receipt, err := Transfer(ctx, uow, guildID, TransferRequest{
		From:           models.PoolParty(),
		To:             models.MemberParty(discordID),
		Amount:         amount,
		Type:           models.TransactionTypeDailyClaim,
		IdempotencyKey: fmt.Sprintf("daily:%d:%d:%s", guildID, discordID, today.Format("2006-01-02")),
		Metadata:       map[string]any{"streak": streak},
	})
	if errors.Is(err, ErrDuplicateTransfer) {
		// Today's grant is already on the ledger even though the claim date
		// was cleared by an account reset
		return nil, &DailyCooldownError{NextEligibleAt: NextUTCMidnight(now)}
	}
	if err != nil {
		return nil, err
	}

	if err := uow.AccountRepository().RecordDailyClaim(ctx, discordID, today, streak); err != nil {
		return nil, fmt.Errorf("failed to record daily claim: %w", err)
	}

	uow.EventBus().Publish(rewardEvent(&models.RewardGrant{
		GuildID:   guildID,
		DiscordID: discordID,
		Amount:    amount,
		Reason:    models.TransactionTypeDailyClaim,
	}))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.DailyClaimResult{
		Amount:         amount,
		Streak:         streak,
		NewBalance:     receipt.ToBalance,
		NextEligibleAt: NextUTCMidnight(now),
	}, nil
}

func (s *rewardService) VoiceJoined(guildID, discordID int64, at time.Time) {
	s.voice.Start(guildID, discordID, at)
}

func (s *rewardService) VoiceLeft(ctx context.Context, guildID, discordID int64, at time.Time) (*models.RewardGrant, error) {
	minutes, ok := s.voice.End(guildID, discordID, at)
	if !ok {
		return nil, nil
	}
	return s.VoiceSessionEnded(ctx, guildID, discordID, minutes)
}

func (s *rewardService) MemberJoined(ctx context.Context, guildID, inviteeID int64, current []InviteUse) (*models.RewardGrant, error) {
	inviterID, ok := s.invites.Attribute(guildID, current)
	if !ok {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"invitee_id": inviteeID,
		}).Debug("Could not attribute member join to a single invite")
		return nil, nil
	}
	return s.InviteAccepted(ctx, guildID, inviterID, inviteeID)
}

func (s *rewardService) SeedInvites(guildID int64, uses []InviteUse) {
	s.invites.Seed(guildID, uses)
}

func (s *rewardService) SeedVoiceSessions(guildID int64, discordIDs []int64, at time.Time) {
	for _, id := range discordIDs {
		s.voice.Start(guildID, id, at)
	}
}

func (s *rewardService) PruneVoiceSessions(ctx context.Context, now time.Time, maxAge time.Duration) int {
	ended := s.voice.Prune(now, maxAge)
	for _, session := range ended {
		if _, err := s.VoiceSessionEnded(ctx, session.GuildID, session.DiscordID, session.Minutes); err != nil {
			log.WithFields(log.Fields{
				"guild_id":   session.GuildID,
				"discord_id": session.DiscordID,
				"minutes":    session.Minutes,
			}).WithError(err).Error("Failed to credit pruned voice session")
		}
	}
	return len(ended)
}

func rewardEvent(grant *models.RewardGrant) events.RewardGrantedEvent {
	return events.RewardGrantedEvent{
		GuildID:   grant.GuildID,
		DiscordID: grant.DiscordID,
		Amount:    grant.Amount,
		Reason:    grant.Reason,
	}
}
