package models

import (
	"time"
)

// Currency represents a virtual currency supported by the platform
type Currency string

const (
	// CurrencyCoins is the primary currency earned and spent in games
	CurrencyCoins Currency = "coins"
	// CurrencyFires is the premium currency
	CurrencyFires Currency = "fires"
)

// Valid reports whether the currency is one of the supported values
func (c Currency) Valid() bool {
	switch c {
	case CurrencyCoins, CurrencyFires:
		return true
	}
	return false
}

// Wallet represents one account's balance in a single currency
type Wallet struct {
	AccountID      int64     `db:"account_id"`
	Currency       Currency  `db:"currency"`
	Balance        int64     `db:"balance"`
	LifetimeEarned int64     `db:"lifetime_earned"`
	LifetimeSpent  int64     `db:"lifetime_spent"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
