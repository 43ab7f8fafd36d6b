package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"guildbank/events"
	"guildbank/models"
	"guildbank/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	// A due giveaway whose timer is still armed is left to the timer for this long
	gapGrace = 5 * time.Second

	settleTimeout = 30 * time.Second
	retryDelay    = time.Second
)

// Announcer publishes settled giveaways to the community
type Announcer interface {
	AnnounceOutcome(ctx context.Context, outcome *models.GiveawayOutcome)
}

// TickHook runs on every periodic tick
type TickHook func(ctx context.Context, now time.Time)

// Scheduler keeps one timer per open giveaway and a periodic sweep that
// settles anything the timers missed. Stored end times are authoritative;
// the timers are rebuilt from them on Start.
type Scheduler struct {
	giveaways service.GiveawayService
	bus       *events.Bus
	announcer Announcer
	hooks     []TickHook
	tickSpec  string
	now       func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
	timers  map[int64]*time.Timer
	firing  map[int64]struct{}
}

// New creates a scheduler for the giveaway service. bus may be nil.
func New(giveaways service.GiveawayService, bus *events.Bus, tickSpec string) *Scheduler {
	return &Scheduler{
		giveaways: giveaways,
		bus:       bus,
		tickSpec:  tickSpec,
		now:       time.Now,
		baseCtx:   context.Background(),
		timers:    make(map[int64]*time.Timer),
		firing:    make(map[int64]struct{}),
	}
}

// SetAnnouncer attaches the announcer notified after each settlement
func (s *Scheduler) SetAnnouncer(announcer Announcer) {
	s.announcer = announcer
}

// AddTickHook registers work to run on every tick. Must be called before Start.
func (s *Scheduler) AddTickHook(hook TickHook) {
	s.hooks = append(s.hooks, hook)
}

// Start re-arms a timer for every open giveaway and begins the periodic
// tick. Giveaways already past their end time fire immediately. The
// returned function stops the tick and every pending timer.
func (s *Scheduler) Start(ctx context.Context) (func(), error) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	ticker := cron.New()
	if _, err := ticker.AddFunc(s.tickSpec, func() { s.OnMinuteTick(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid tick spec %q: %w", s.tickSpec, err)
	}

	open, err := s.giveaways.ListOpenGiveaways(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to re-scan open giveaways: %w", err)
	}
	for _, g := range open {
		s.Arm(g.GuildID, g.ID, g.EndTime)
	}

	ticker.Start()
	log.WithFields(log.Fields{
		"open_giveaways": len(open),
		"tick":           s.tickSpec,
	}).Info("Scheduler started")

	return func() {
		<-ticker.Stop().Done()
		s.stopTimers()
		log.Info("Scheduler stopped")
	}, nil
}

// Arm schedules the giveaway to settle at fireAt, replacing any earlier timer
func (s *Scheduler) Arm(guildID, giveawayID int64, fireAt time.Time) {
	delay := max(fireAt.Sub(s.now()), 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[giveawayID]; ok {
		existing.Stop()
	}
	s.timers[giveawayID] = time.AfterFunc(delay, func() {
		s.OnGiveawayTimer(guildID, giveawayID)
	})

	log.WithFields(log.Fields{
		"guild_id":    guildID,
		"giveaway_id": giveawayID,
		"fire_at":     fireAt,
	}).Debug("Giveaway timer armed")
}

// Disarm stops the giveaway's timer if one is pending
func (s *Scheduler) Disarm(giveawayID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[giveawayID]; ok {
		timer.Stop()
		delete(s.timers, giveawayID)
	}
}

// Armed reports whether a timer is pending for the giveaway
func (s *Scheduler) Armed(giveawayID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[giveawayID]
	return ok
}

// OnGiveawayTimer settles a giveaway whose timer fired
func (s *Scheduler) OnGiveawayTimer(guildID, giveawayID int64) {
	s.mu.Lock()
	delete(s.timers, giveawayID)
	if _, busy := s.firing[giveawayID]; busy {
		s.mu.Unlock()
		return
	}
	s.firing[giveawayID] = struct{}{}
	ctx := s.baseCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.firing, giveawayID)
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}
	s.settle(ctx, guildID, giveawayID)
}

// OnMinuteTick settles due giveaways the timers missed and runs the tick hooks
func (s *Scheduler) OnMinuteTick(ctx context.Context) {
	now := s.now()

	due, err := s.giveaways.ListDueGiveaways(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to list due giveaways")
	}
	for _, g := range due {
		if !s.claimForSweep(g, now) {
			continue
		}

		late := now.Sub(g.EndTime)
		log.WithFields(log.Fields{
			"guild_id":    g.GuildID,
			"giveaway_id": g.ID,
			"late_by":     late.Round(time.Second),
		}).Warn("Scheduling gap: settling giveaway from sweep")
		if s.bus != nil {
			s.bus.Emit(ctx, events.SchedulingGapEvent{
				GuildID:    g.GuildID,
				GiveawayID: g.ID,
				LateBySecs: int64(late / time.Second),
			})
		}

		s.settle(ctx, g.GuildID, g.ID)

		s.mu.Lock()
		delete(s.firing, g.ID)
		s.mu.Unlock()
	}

	for _, hook := range s.hooks {
		hook(ctx, now)
	}
}

// claimForSweep marks a due giveaway as being settled by the sweep. It
// returns false when a timer is handling it.
func (s *Scheduler) claimForSweep(g *models.Giveaway, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.firing[g.ID]; busy {
		return false
	}
	if timer, armed := s.timers[g.ID]; armed {
		if now.Sub(g.EndTime) < gapGrace {
			return false
		}
		timer.Stop()
		delete(s.timers, g.ID)
	}
	s.firing[g.ID] = struct{}{}
	return true
}

func (s *Scheduler) settle(ctx context.Context, guildID, giveawayID int64) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	fields := log.Fields{
		"guild_id":    guildID,
		"giveaway_id": giveawayID,
	}

	outcome, err := s.giveaways.ResolveGiveaway(ctx, guildID, giveawayID)
	switch {
	case err == nil:
		if s.announcer != nil {
			s.announcer.AnnounceOutcome(ctx, outcome)
		}
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrNotFound):
		log.WithFields(fields).WithError(err).Debug("Giveaway already settled")
	case errors.Is(err, service.ErrNotDue):
		log.WithFields(fields).Debug("Giveaway timer fired early, retrying")
		s.Arm(guildID, giveawayID, s.now().Add(retryDelay))
	case errors.Is(err, service.ErrInvariantViolation):
		log.WithFields(fields).WithError(err).Error("Giveaway cannot be settled")
		if s.bus != nil {
			s.bus.Emit(ctx, events.InvariantViolationEvent{GuildID: guildID, Detail: err.Error()})
		}
	default:
		// Left open; the next sweep retries
		log.WithFields(fields).WithError(err).Error("Failed to settle giveaway")
	}
}

func (s *Scheduler) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
