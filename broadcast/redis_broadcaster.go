package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tombola/events"
)

// RedisBroadcaster fans collection-scoped events out over redis pub/sub so
// other instances and realtime consumers can follow collection activity.
// Delivery is best-effort: a publish failure is logged and dropped, never
// surfaced to the transaction that produced the event.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster creates a broadcaster backed by the given client
func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

// Register subscribes the broadcaster to every collection-scoped event type
func (b *RedisBroadcaster) Register(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventTypeItemReserved,
		events.EventTypeItemReleased,
		events.EventTypeItemPurchased,
		events.EventTypeCollectionSettled,
	} {
		bus.Subscribe(eventType, b.handleEvent)
	}
}

func (b *RedisBroadcaster) handleEvent(ctx context.Context, event events.Event) {
	scoped, ok := event.(events.CollectionScoped)
	if !ok {
		return
	}

	payload, err := json.Marshal(envelope{
		Type:  event.Type(),
		Event: event,
	})
	if err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Warn("Failed to encode broadcast event")
		return
	}

	channel := ChannelFor(scoped.Collection())
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"channel":   channel,
		}).WithError(err).Warn("Failed to broadcast event")
	}
}

// ChannelFor returns the pub/sub channel name for a collection
func ChannelFor(collectionID int64) string {
	return fmt.Sprintf("collection.%d", collectionID)
}

type envelope struct {
	Type  events.EventType `json:"type"`
	Event any              `json:"event"`
}
