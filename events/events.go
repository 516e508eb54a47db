package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"tombola/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeItemReserved      EventType = "item-reserved"
	EventTypeItemReleased      EventType = "item-released"
	EventTypeItemPurchased     EventType = "item-purchased"
	EventTypeCollectionSettled EventType = "collection-settled"
	EventTypeWalletCredited    EventType = "wallet-credited"
	EventTypeWalletDebited     EventType = "wallet-debited"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// CollectionScoped is implemented by events that belong to a single
// collection's topic on the broadcast channel.
type CollectionScoped interface {
	Collection() int64
}

// ItemReservedEvent represents an item claimed by a holder
type ItemReservedEvent struct {
	CollectionID  int64
	ItemIndex     int
	HolderID      int64
	ReservedUntil int64 // unix seconds
}

func (e ItemReservedEvent) Type() EventType   { return EventTypeItemReserved }
func (e ItemReservedEvent) Collection() int64 { return e.CollectionID }

// ItemReleasedEvent represents a reservation returned to the pool
type ItemReleasedEvent struct {
	CollectionID int64
	ItemIndex    int
}

func (e ItemReleasedEvent) Type() EventType   { return EventTypeItemReleased }
func (e ItemReleasedEvent) Collection() int64 { return e.CollectionID }

// ItemPurchasedEvent represents a confirmed, settled purchase
type ItemPurchasedEvent struct {
	CollectionID int64
	ItemIndex    int
	HolderID     int64
	Amount       int64
	Currency     models.Currency
}

func (e ItemPurchasedEvent) Type() EventType   { return EventTypeItemPurchased }
func (e ItemPurchasedEvent) Collection() int64 { return e.CollectionID }

// CollectionSettledEvent represents a collection reaching its settled state
type CollectionSettledEvent struct {
	CollectionID int64
	Kind         models.CollectionKind
}

func (e CollectionSettledEvent) Type() EventType   { return EventTypeCollectionSettled }
func (e CollectionSettledEvent) Collection() int64 { return e.CollectionID }

// WalletCreditedEvent represents a ledger credit applied to a wallet
type WalletCreditedEvent struct {
	AccountID     int64
	Currency      models.Currency
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
}

func (e WalletCreditedEvent) Type() EventType { return EventTypeWalletCredited }

// WalletDebitedEvent represents a ledger debit applied to a wallet
type WalletDebitedEvent struct {
	AccountID     int64
	Currency      models.Currency
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
}

func (e WalletDebitedEvent) Type() EventType { return EventTypeWalletDebited }

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

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
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

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits.
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

// Flush emits all pending events; called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context, so emit on a fresh one.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
