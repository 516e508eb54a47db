package models

import (
	"time"
)

// ItemState represents the allocation state of a reservable item
type ItemState string

const (
	ItemStateAvailable ItemState = "available"
	ItemStateReserved  ItemState = "reserved"
	ItemStateSold      ItemState = "sold"
)

// ReservableItem is a uniquely-ownable unit of inventory: a raffle number or
// a bingo room slot. At most one holder at any time; a reservation carries an
// expiry after which it may be reclaimed.
type ReservableItem struct {
	CollectionID  int64      `db:"collection_id"`
	ItemIndex     int        `db:"item_index"`
	State         ItemState  `db:"state"`
	HolderID      *int64     `db:"holder_id"`
	ReservedUntil *time.Time `db:"reserved_until"`
	SoldAt        *time.Time `db:"sold_at"`
	PaidAmount    *int64     `db:"paid_amount"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// IsHeldBy checks if the item is currently held by the given account
func (i *ReservableItem) IsHeldBy(accountID int64) bool {
	return i.HolderID != nil && *i.HolderID == accountID
}

// ReservationExpired checks if a reserved item's hold window has lapsed
func (i *ReservableItem) ReservationExpired(now time.Time) bool {
	return i.State == ItemStateReserved && i.ReservedUntil != nil && now.After(*i.ReservedUntil)
}
