package service

import (
	"errors"
)

// Typed failures returned by the ledger and reservation services. These are
// routine outcomes of concurrent contention, not faults: callers discriminate
// with errors.Is and present them as "no longer available" or "insufficient
// balance" rather than a server error.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCurrency    = errors.New("unknown currency")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrAlreadyReserved    = errors.New("item already reserved")
	ErrAlreadySold        = errors.New("item already sold")
	ErrNotHolder          = errors.New("item held by another account")
	ErrReservationExpired = errors.New("reservation expired")
	ErrItemNotFound       = errors.New("item not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionClosed   = errors.New("collection is not open")
)
