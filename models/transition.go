package models

import (
	"time"
)

// ItemTransition describes one edge of the reservable item state machine.
// Repositories apply it as a single conditional update: the transition takes
// effect only if the row still matches From and the optional guards, which is
// what makes concurrent claims race-free without explicit locking.
type ItemTransition struct {
	From ItemState
	To   ItemState

	// MatchHolder guards the update on holder_id = HolderID.
	MatchHolder bool
	// RequireUnexpired guards the update on reserved_until being in the future.
	RequireUnexpired bool
	// RequireExpired guards the update on reserved_until having passed.
	RequireExpired bool

	// Values applied by the transition. HolderID and ReservedUntil are set
	// when To is reserved; SoldAt and PaidAmount when To is sold. A
	// transition to available clears holder, expiry and settlement fields.
	HolderID      int64
	ReservedUntil time.Time
	SoldAt        time.Time
	PaidAmount    int64
}

// ReserveTransition claims an available item for a holder until the deadline
func ReserveTransition(holderID int64, until time.Time) ItemTransition {
	return ItemTransition{
		From:          ItemStateAvailable,
		To:            ItemStateReserved,
		HolderID:      holderID,
		ReservedUntil: until,
	}
}

// ConfirmTransition settles a live reservation into a sale
func ConfirmTransition(holderID int64, soldAt time.Time, paidAmount int64) ItemTransition {
	return ItemTransition{
		From:             ItemStateReserved,
		To:               ItemStateSold,
		MatchHolder:      true,
		RequireUnexpired: true,
		HolderID:         holderID,
		SoldAt:           soldAt,
		PaidAmount:       paidAmount,
	}
}

// ReleaseTransition returns an item to the pool from the given state
func ReleaseTransition(from ItemState) ItemTransition {
	return ItemTransition{
		From: from,
		To:   ItemStateAvailable,
	}
}

// ReleaseHeldTransition returns a reserved item to the pool only if the
// given account still holds it
func ReleaseHeldTransition(holderID int64) ItemTransition {
	return ItemTransition{
		From:        ItemStateReserved,
		To:          ItemStateAvailable,
		MatchHolder: true,
		HolderID:    holderID,
	}
}

// ReclaimExpiredTransition releases a reservation whose window has lapsed
func ReclaimExpiredTransition() ItemTransition {
	return ItemTransition{
		From:           ItemStateReserved,
		To:             ItemStateAvailable,
		RequireExpired: true,
	}
}
