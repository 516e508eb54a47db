package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{}, 2)

	bus.Subscribe(EventTypeItemReserved, func(ctx context.Context, event Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		done <- struct{}{}
	})
	bus.Subscribe(EventTypeItemReserved, func(ctx context.Context, event Event) {
		done <- struct{}{}
	})

	bus.Emit(ctx, ItemReservedEvent{CollectionID: 7, ItemIndex: 3, HolderID: 42})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1)
	ev := received[0].(ItemReservedEvent)
	assert.Equal(t, int64(7), ev.CollectionID)
	assert.Equal(t, int64(42), ev.HolderID)
}

func TestBus_EmitWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	// Must not panic or block
	bus.Emit(context.Background(), ItemReleasedEvent{CollectionID: 7, ItemIndex: 3})
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	done := make(chan struct{})

	bus.Subscribe(EventTypeCollectionSettled, func(ctx context.Context, event Event) {
		panic("handler exploded")
	})
	bus.Subscribe(EventTypeCollectionSettled, func(ctx context.Context, event Event) {
		close(done)
	})

	bus.Emit(ctx, CollectionSettledEvent{CollectionID: 7})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("surviving handler was not invoked")
	}
}

func TestTransactionalBus_FlushAfterCommit(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	received := make(chan Event, 2)
	bus.Subscribe(EventTypeWalletCredited, func(ctx context.Context, event Event) {
		received <- event
	})

	txBus := NewTransactionalBus(bus)
	txBus.Publish(WalletCreditedEvent{AccountID: 42, Amount: 100})
	txBus.Publish(WalletCreditedEvent{AccountID: 42, Amount: 200})

	// Nothing escapes before the flush
	select {
	case <-received:
		t.Fatal("event emitted before flush")
	case <-time.After(50 * time.Millisecond):
	}

	assert.NoError(t, txBus.Flush(ctx))

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("event was not emitted after flush")
		}
	}
}

func TestTransactionalBus_DiscardAfterRollback(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	received := make(chan Event, 1)
	bus.Subscribe(EventTypeWalletDebited, func(ctx context.Context, event Event) {
		received <- event
	})

	txBus := NewTransactionalBus(bus)
	txBus.Publish(WalletDebitedEvent{AccountID: 42, Amount: 100})
	txBus.Discard()

	assert.NoError(t, txBus.Flush(ctx))

	select {
	case <-received:
		t.Fatal("discarded event was emitted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCollectionScopedEvents(t *testing.T) {
	scoped := []Event{
		ItemReservedEvent{CollectionID: 7},
		ItemReleasedEvent{CollectionID: 7},
		ItemPurchasedEvent{CollectionID: 7},
		CollectionSettledEvent{CollectionID: 7},
	}

	for _, ev := range scoped {
		s, ok := ev.(CollectionScoped)
		assert.True(t, ok, "%s should be collection scoped", ev.Type())
		assert.Equal(t, int64(7), s.Collection())
	}

	// Wallet events are account scoped, not collection scoped
	_, ok := Event(WalletCreditedEvent{}).(CollectionScoped)
	assert.False(t, ok)
}
