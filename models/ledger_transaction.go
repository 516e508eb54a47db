package models

import (
	"time"
)

// TransactionKind represents the type of ledger movement
type TransactionKind string

const (
	TransactionKindCredit     TransactionKind = "credit"
	TransactionKindDebit      TransactionKind = "debit"
	TransactionKindAdjustment TransactionKind = "adjustment"
)

// LedgerTransaction is an immutable audit record of a single balance movement.
// Amount is signed: positive for credits, negative for debits.
// BalanceAfter is always BalanceBefore + Amount.
type LedgerTransaction struct {
	ID            int64           `db:"id"`
	AccountID     int64           `db:"account_id"`
	Currency      Currency        `db:"currency"`
	Kind          TransactionKind `db:"kind"`
	Amount        int64           `db:"amount"`
	BalanceBefore int64           `db:"balance_before"`
	BalanceAfter  int64           `db:"balance_after"`
	Description   string          `db:"description"`
	Reference     *string         `db:"reference"`
	Metadata      map[string]any  `db:"metadata"`
	CreatedAt     time.Time       `db:"created_at"`
}
