package events

import (
	"context"
	"sync"

	"guildbank/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypePoolChange          EventType = "pool_change"
	EventTypeRewardGranted       EventType = "reward_granted"
	EventTypePurchase            EventType = "purchase"
	EventTypeGiveawayJoined      EventType = "giveaway_joined"
	EventTypeGiveawayStateChange EventType = "giveaway_state_change"
	EventTypeAccountsReset       EventType = "accounts_reset"
	EventTypeSchedulingGap       EventType = "scheduling_gap"
	EventTypeInvariantViolation  EventType = "invariant_violation"
)

// AllEventTypes lists every event type the bus carries
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypePoolChange,
	EventTypeRewardGranted,
	EventTypePurchase,
	EventTypeGiveawayJoined,
	EventTypeGiveawayStateChange,
	EventTypeAccountsReset,
	EventTypeSchedulingGap,
	EventTypeInvariantViolation,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a change to a member's balance
type BalanceChangeEvent struct {
	GuildID         int64                  `json:"guild_id"`
	DiscordID       int64                  `json:"discord_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// PoolChangeEvent represents a change to a community pool
type PoolChangeEvent struct {
	GuildID         int64                  `json:"guild_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e PoolChangeEvent) Type() EventType {
	return EventTypePoolChange
}

// RewardGrantedEvent is emitted when activity earns a reward
type RewardGrantedEvent struct {
	GuildID   int64                  `json:"guild_id"`
	DiscordID int64                  `json:"discord_id,omitempty"`
	Amount    int64                  `json:"amount"`
	Reason    models.TransactionType `json:"reason"`
}

func (e RewardGrantedEvent) Type() EventType {
	return EventTypeRewardGranted
}

// PurchaseEvent is emitted for a completed shop purchase
type PurchaseEvent struct {
	GuildID   int64 `json:"guild_id"`
	DiscordID int64 `json:"discord_id"`
	ItemID    int64 `json:"item_id"`
	Price     int64 `json:"price"`
}

func (e PurchaseEvent) Type() EventType {
	return EventTypePurchase
}

// GiveawayJoinedEvent is emitted when a member enters a giveaway
type GiveawayJoinedEvent struct {
	GuildID    int64 `json:"guild_id"`
	GiveawayID int64 `json:"giveaway_id"`
	DiscordID  int64 `json:"discord_id"`
	EntryCost  int64 `json:"entry_cost"`
}

func (e GiveawayJoinedEvent) Type() EventType {
	return EventTypeGiveawayJoined
}

// GiveawayStateChangeEvent represents a giveaway state transition.
// OldState is empty for a newly created giveaway.
type GiveawayStateChangeEvent struct {
	GuildID    int64                `json:"guild_id"`
	GiveawayID int64                `json:"giveaway_id"`
	OldState   models.GiveawayState `json:"old_state,omitempty"`
	NewState   models.GiveawayState `json:"new_state"`
	ChannelID  int64                `json:"channel_id,omitempty"`
	MessageID  int64                `json:"message_id,omitempty"`
}

func (e GiveawayStateChangeEvent) Type() EventType {
	return EventTypeGiveawayStateChange
}

// AccountsResetEvent is emitted after an administrator resets a guild's accounts
type AccountsResetEvent struct {
	GuildID  int64 `json:"guild_id"`
	AdminID  int64 `json:"admin_id"`
	Accounts int64 `json:"accounts"`
	Removed  int64 `json:"removed"`
}

func (e AccountsResetEvent) Type() EventType {
	return EventTypeAccountsReset
}

// SchedulingGapEvent is emitted when a giveaway passed its end time without
// an armed timer and was picked up by the sweep
type SchedulingGapEvent struct {
	GuildID    int64 `json:"guild_id"`
	GiveawayID int64 `json:"giveaway_id"`
	LateBySecs int64 `json:"late_by_secs"`
}

func (e SchedulingGapEvent) Type() EventType {
	return EventTypeSchedulingGap
}

// InvariantViolationEvent is emitted when an operation observed an impossible state
type InvariantViolationEvent struct {
	GuildID int64  `json:"guild_id"`
	Detail  string `json:"detail"`
}

func (e InvariantViolationEvent) Type() EventType {
	return EventTypeInvariantViolation
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously and a panicking handler does not affect the others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits pending events; called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the transaction, so they get a fresh context
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
