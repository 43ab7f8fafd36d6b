package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guildbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversAfterCommit(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	received := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if e, ok := event.(BalanceChangeEvent); ok {
			received <- e
		}
	})

	sent := BalanceChangeEvent{
		GuildID:         789,
		DiscordID:       123456,
		OldBalance:      10,
		NewBalance:      15,
		TransactionType: models.TransactionTypeDailyClaim,
		ChangeAmount:    5,
	}
	txBus.Publish(sent)
	assert.Equal(t, 1, txBus.Pending())

	select {
	case <-received:
		t.Fatal("event delivered before flush")
	case <-time.After(50 * time.Millisecond):
	}

	txBus.Flush(context.Background())
	assert.Equal(t, 0, txBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered after flush")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	var calls atomic.Int32
	mainBus.Subscribe(EventTypePoolChange, func(ctx context.Context, event Event) {
		calls.Add(1)
	})

	txBus.Publish(PoolChangeEvent{GuildID: 1, ChangeAmount: 100})
	txBus.Discard()
	txBus.Flush(context.Background())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := make(map[EventType]bool)
	var wg sync.WaitGroup
	wg.Add(3)
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		mu.Lock()
		seen[event.Type()] = true
		mu.Unlock()
		wg.Done()
	})

	bus.Emit(context.Background(), RewardGrantedEvent{GuildID: 1, DiscordID: 2, Amount: 5})
	bus.Emit(context.Background(), GiveawayStateChangeEvent{GiveawayID: 3, NewState: models.GiveawayStateResolved})
	bus.Emit(context.Background(), SchedulingGapEvent{GiveawayID: 3})

	waitOrFail(t, &wg)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen[EventTypeRewardGranted])
	assert.True(t, seen[EventTypeGiveawayStateChange])
	assert.True(t, seen[EventTypeSchedulingGap])
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventTypePurchase, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypePurchase, func(ctx context.Context, event Event) {
		wg.Done()
	})

	bus.Emit(context.Background(), PurchaseEvent{GuildID: 1, ItemID: 2})
	waitOrFail(t, &wg)
}

func TestAllEventTypesCoverEvents(t *testing.T) {
	all := []Event{
		BalanceChangeEvent{},
		PoolChangeEvent{},
		RewardGrantedEvent{},
		PurchaseEvent{},
		GiveawayJoinedEvent{},
		GiveawayStateChangeEvent{},
		AccountsResetEvent{},
		SchedulingGapEvent{},
		InvariantViolationEvent{},
	}
	require.Len(t, AllEventTypes, len(all))
	for _, e := range all {
		assert.Contains(t, AllEventTypes, e.Type())
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handlers")
	}
}
