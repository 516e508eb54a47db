package models

import (
	"time"
)

// CollectionKind represents what kind of game owns a set of reservable items
type CollectionKind string

const (
	CollectionKindRaffle    CollectionKind = "raffle"
	CollectionKindBingoRoom CollectionKind = "bingo_room"
)

// CollectionState represents the lifecycle state of a collection
type CollectionState string

const (
	CollectionStateOpen      CollectionState = "open"
	CollectionStateSettled   CollectionState = "settled"
	CollectionStateAbandoned CollectionState = "abandoned"
)

// Collection represents a raffle or a bingo room owning a fixed set of items
type Collection struct {
	ID             int64           `db:"id"`
	Kind           CollectionKind  `db:"kind"`
	HostAccountID  int64           `db:"host_account_id"`
	State          CollectionState `db:"state"`
	ItemPrice      int64           `db:"item_price"`
	Currency       Currency        `db:"currency"`
	ItemCount      int             `db:"item_count"`
	LastActivityAt time.Time       `db:"last_activity_at"`
	CreatedAt      time.Time       `db:"created_at"`
}

// IsOpen checks if the collection can still sell items
func (c *Collection) IsOpen() bool {
	return c.State == CollectionStateOpen
}

// IsTerminal checks if the collection has reached a final state
func (c *Collection) IsTerminal() bool {
	return c.State == CollectionStateSettled || c.State == CollectionStateAbandoned
}
