package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tombola/database"
	"tombola/models"
)

// WalletRepository implements the WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

// newWalletRepositoryWithTx creates a new wallet repository with a transaction
func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

const walletColumns = `account_id, currency, balance, lifetime_earned, lifetime_spent, created_at, updated_at`

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(
		&w.AccountID,
		&w.Currency,
		&w.Balance,
		&w.LifetimeEarned,
		&w.LifetimeSpent,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Get retrieves a wallet, or nil if it does not exist
func (r *WalletRepository) Get(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE account_id = $1 AND currency = $2`, walletColumns)

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, accountID, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for account %d: %w", accountID, err)
	}
	return wallet, nil
}

// GetForUpdate retrieves a wallet holding an exclusive row lock until the
// surrounding transaction ends. The lock serializes concurrent balance
// check-and-update sequences on the same wallet.
func (r *WalletRepository) GetForUpdate(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE account_id = $1 AND currency = $2 FOR UPDATE`, walletColumns)

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, accountID, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet for account %d: %w", accountID, err)
	}
	return wallet, nil
}

// Create creates a wallet with zero balances. A concurrent insert of the
// same wallet loses on the primary key, in which case the existing row is
// returned locked.
func (r *WalletRepository) Create(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	query := fmt.Sprintf(`
		INSERT INTO wallets (account_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (account_id, currency) DO NOTHING
		RETURNING %s
	`, walletColumns)

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, accountID, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for account %d: %w", accountID, err)
	}
	if wallet == nil {
		// Lost the insert race; the row exists now.
		return r.GetForUpdate(ctx, accountID, currency)
	}
	return wallet, nil
}

// Save persists the wallet's balance and lifetime counters
func (r *WalletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $3, lifetime_earned = $4, lifetime_spent = $5, updated_at = NOW()
		WHERE account_id = $1 AND currency = $2
	`

	result, err := r.q.Exec(ctx, query,
		wallet.AccountID,
		wallet.Currency,
		wallet.Balance,
		wallet.LifetimeEarned,
		wallet.LifetimeSpent,
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet for account %d: %w", wallet.AccountID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet for account %d not found", wallet.AccountID)
	}

	return nil
}
