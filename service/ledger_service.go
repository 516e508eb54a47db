package service

import (
	"context"
	"fmt"

	"tombola/models"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

func (s *ledgerService) Credit(ctx context.Context, accountID int64, currency models.Currency, amount int64, description, reference string, metadata map[string]any) (*models.LedgerTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	txn, err := applyCredit(ctx, uow, accountID, currency, amount, description, reference, metadata)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

func (s *ledgerService) Debit(ctx context.Context, accountID int64, currency models.Currency, amount int64, description, reference string, metadata map[string]any) (*models.LedgerTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	txn, err := applyDebit(ctx, uow, accountID, currency, amount, description, reference, metadata)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

func (s *ledgerService) GetWallet(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().Get(ctx, accountID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: account %d, currency %s", ErrWalletNotFound, accountID, currency)
	}

	return wallet, nil
}

func (s *ledgerService) GetTransactions(ctx context.Context, accountID int64, currency models.Currency, limit int) ([]*models.LedgerTransaction, error) {
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txns, err := uow.LedgerTransactionRepository().GetByWallet(ctx, accountID, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	return txns, nil
}
