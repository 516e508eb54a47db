package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tombola/database"
	"tombola/events"
	"tombola/service"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	walletRepo       service.WalletRepository
	ledgerRepo       service.LedgerTransactionRepository
	collectionRepo   service.CollectionRepository
	itemRepo         service.ItemRepository
	referralRepo     service.ReferralTokenRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.walletRepo = newWalletRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerTransactionRepositoryWithTx(tx)
	u.collectionRepo = newCollectionRepositoryWithTx(tx)
	u.itemRepo = newItemRepositoryWithTx(tx)
	u.referralRepo = newReferralTokenRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	if u.walletRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletRepo
}

// LedgerTransactionRepository returns the ledger transaction repository for this unit of work
func (u *unitOfWork) LedgerTransactionRepository() service.LedgerTransactionRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// CollectionRepository returns the collection repository for this unit of work
func (u *unitOfWork) CollectionRepository() service.CollectionRepository {
	if u.collectionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.collectionRepo
}

// ItemRepository returns the reservable item repository for this unit of work
func (u *unitOfWork) ItemRepository() service.ItemRepository {
	if u.itemRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.itemRepo
}

// ReferralTokenRepository returns the referral token repository for this unit of work
func (u *unitOfWork) ReferralTokenRepository() service.ReferralTokenRepository {
	if u.referralRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.referralRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
