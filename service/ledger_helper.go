package service

import (
	"context"
	"fmt"

	"tombola/events"
	"tombola/models"
)

// applyCredit moves amount into a wallet inside the caller's unit of work.
// This is the single entry point for credits: the balance update and the
// ledger row are written in the same transaction, so neither can exist
// without the other. When reference is non-empty and already recorded for
// this wallet, the existing transaction is returned with no further effect.
func applyCredit(ctx context.Context, uow UnitOfWork, accountID int64, currency models.Currency, amount int64, description, reference string, metadata map[string]any) (*models.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	wallet, err := uow.WalletRepository().GetForUpdate(ctx, accountID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if wallet == nil {
		wallet, err = uow.WalletRepository().Create(ctx, accountID, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	}

	// The reference check runs under the wallet lock, so a replayed call
	// serializes behind the original and sees its committed row.
	if reference != "" {
		existing, err := uow.LedgerTransactionRepository().GetByReference(ctx, accountID, currency, reference)
		if err != nil {
			return nil, fmt.Errorf("failed to check transaction reference: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	txn := &models.LedgerTransaction{
		AccountID:     accountID,
		Currency:      currency,
		Kind:          models.TransactionKindCredit,
		Amount:        amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance + amount,
		Description:   description,
		Metadata:      metadata,
	}
	if reference != "" {
		txn.Reference = &reference
	}

	wallet.Balance += amount
	wallet.LifetimeEarned += amount
	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet balance: %w", err)
	}

	if err := uow.LedgerTransactionRepository().Insert(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record credit: %w", err)
	}

	uow.EventBus().Publish(events.WalletCreditedEvent{
		AccountID:     accountID,
		Currency:      currency,
		Amount:        amount,
		BalanceBefore: txn.BalanceBefore,
		BalanceAfter:  txn.BalanceAfter,
	})

	return txn, nil
}

// applyDebit moves amount out of a wallet inside the caller's unit of work.
// The wallet row stays exclusively locked from the balance read to the
// update, so two concurrent debits can never both pass the insufficient
// funds check against a stale balance.
func applyDebit(ctx context.Context, uow UnitOfWork, accountID int64, currency models.Currency, amount int64, description, reference string, metadata map[string]any) (*models.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	wallet, err := uow.WalletRepository().GetForUpdate(ctx, accountID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if wallet == nil {
		wallet, err = uow.WalletRepository().Create(ctx, accountID, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	}

	if reference != "" {
		existing, err := uow.LedgerTransactionRepository().GetByReference(ctx, accountID, currency, reference)
		if err != nil {
			return nil, fmt.Errorf("failed to check transaction reference: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	if wallet.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, wallet.Balance, amount)
	}

	txn := &models.LedgerTransaction{
		AccountID:     accountID,
		Currency:      currency,
		Kind:          models.TransactionKindDebit,
		Amount:        -amount,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  wallet.Balance - amount,
		Description:   description,
		Metadata:      metadata,
	}
	if reference != "" {
		txn.Reference = &reference
	}

	wallet.Balance -= amount
	wallet.LifetimeSpent += amount
	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet balance: %w", err)
	}

	if err := uow.LedgerTransactionRepository().Insert(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record debit: %w", err)
	}

	uow.EventBus().Publish(events.WalletDebitedEvent{
		AccountID:     accountID,
		Currency:      currency,
		Amount:        amount,
		BalanceBefore: txn.BalanceBefore,
		BalanceAfter:  txn.BalanceAfter,
	})

	return txn, nil
}
