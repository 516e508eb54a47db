package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tombola/database"
	"tombola/models"
)

// LedgerTransactionRepository implements the LedgerTransactionRepository
// interface. The underlying table is append-only: no method here ever
// updates or deletes a row.
type LedgerTransactionRepository struct {
	q queryable
}

// NewLedgerTransactionRepository creates a new ledger transaction repository
func NewLedgerTransactionRepository(db *database.DB) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{q: db.Pool}
}

// newLedgerTransactionRepositoryWithTx creates a new ledger transaction repository with a transaction
func newLedgerTransactionRepositoryWithTx(tx queryable) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{q: tx}
}

// Insert appends a transaction row and fills in its ID and timestamp
func (r *LedgerTransactionRepository) Insert(ctx context.Context, txn *models.LedgerTransaction) error {
	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_transactions
		(account_id, currency, kind, amount, balance_before, balance_after, description, reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.AccountID,
		txn.Currency,
		txn.Kind,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Description,
		txn.Reference,
		metadataJSON,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert ledger transaction for account %d: %w", txn.AccountID, err)
	}

	return nil
}

const ledgerColumns = `id, account_id, currency, kind, amount, balance_before, balance_after, description, reference, metadata, created_at`

func scanLedgerTransaction(row pgx.Row) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	var metadataJSON []byte

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Currency,
		&txn.Kind,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&txn.Description,
		&txn.Reference,
		&metadataJSON,
		&txn.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &txn, nil
}

// GetByReference retrieves a transaction by its idempotency reference, or
// nil if none exists for this wallet
func (r *LedgerTransactionRepository) GetByReference(ctx context.Context, accountID int64, currency models.Currency, reference string) (*models.LedgerTransaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM ledger_transactions
		WHERE account_id = $1 AND currency = $2 AND reference = $3
	`, ledgerColumns)

	txn, err := scanLedgerTransaction(r.q.QueryRow(ctx, query, accountID, currency, reference))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by reference %q: %w", reference, err)
	}
	return txn, nil
}

// GetByWallet returns the most recent transactions for a wallet
func (r *LedgerTransactionRepository) GetByWallet(ctx context.Context, accountID int64, currency models.Currency, limit int) ([]*models.LedgerTransaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM ledger_transactions
		WHERE account_id = $1 AND currency = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, ledgerColumns)

	rows, err := r.q.Query(ctx, query, accountID, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var txns []*models.LedgerTransaction
	for rows.Next() {
		txn, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger transactions: %w", err)
	}

	return txns, nil
}

// SumAmounts returns the signed sum of all transactions for a wallet
func (r *LedgerTransactionRepository) SumAmounts(ctx context.Context, accountID int64, currency models.Currency) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_transactions
		WHERE account_id = $1 AND currency = $2
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, accountID, currency).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for account %d: %w", accountID, err)
	}

	return sum, nil
}
