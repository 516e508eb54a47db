package service

import (
	"context"
	"time"

	"tombola/events"
	"tombola/models"
)

// WalletRepository defines the interface for wallet data access
type WalletRepository interface {
	// Get retrieves a wallet, or nil if it does not exist
	Get(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error)

	// GetForUpdate retrieves a wallet holding an exclusive row lock for the
	// rest of the transaction, or nil if it does not exist
	GetForUpdate(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error)

	// Create creates a wallet with zero balances
	Create(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error)

	// Save persists the wallet's balance and lifetime counters
	Save(ctx context.Context, wallet *models.Wallet) error
}

// LedgerTransactionRepository defines the interface for the immutable
// transaction log. Rows are only ever inserted, never updated or deleted.
type LedgerTransactionRepository interface {
	// Insert appends a transaction row and fills in its ID and timestamp
	Insert(ctx context.Context, txn *models.LedgerTransaction) error

	// GetByReference retrieves a transaction by its idempotency reference,
	// or nil if none exists for this wallet
	GetByReference(ctx context.Context, accountID int64, currency models.Currency, reference string) (*models.LedgerTransaction, error)

	// GetByWallet returns the most recent transactions for a wallet
	GetByWallet(ctx context.Context, accountID int64, currency models.Currency, limit int) ([]*models.LedgerTransaction, error)

	// SumAmounts returns the signed sum of all transactions for a wallet
	SumAmounts(ctx context.Context, accountID int64, currency models.Currency) (int64, error)
}

// CollectionRepository defines the interface for collection data access
type CollectionRepository interface {
	// Create creates a collection and fills in its ID and timestamps
	Create(ctx context.Context, collection *models.Collection) error

	// GetByID retrieves a collection, or nil if it does not exist
	GetByID(ctx context.Context, id int64) (*models.Collection, error)

	// TransitionState atomically moves a collection between states with a
	// conditional update. Returns nil with no error when the guard no longer
	// matches, meaning another actor claimed the collection first.
	TransitionState(ctx context.Context, id int64, from, to models.CollectionState) (*models.Collection, error)

	// TouchActivity bumps last_activity_at to now
	TouchActivity(ctx context.Context, id int64) error

	// GetOpenInactiveSince returns open collections with no activity since
	// the given cutoff
	GetOpenInactiveSince(ctx context.Context, cutoff time.Time) ([]*models.Collection, error)

	// DeleteTerminalBefore removes settled/abandoned collections whose last
	// activity predates the cutoff, returning how many were removed
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ItemRepository defines the interface for reservable item data access
type ItemRepository interface {
	// CreateBatch seeds count items (indexes 1..count) for a collection
	CreateBatch(ctx context.Context, collectionID int64, count int) error

	// Get retrieves an item, or nil if it does not exist
	Get(ctx context.Context, collectionID int64, itemIndex int) (*models.ReservableItem, error)

	// ListByCollection returns all items of a collection ordered by index
	ListByCollection(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error)

	// ListHeldByCollection returns the reserved and sold items of a collection
	ListHeldByCollection(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error)

	// ListExpiredReserved returns reserved items whose window lapsed before now
	ListExpiredReserved(ctx context.Context, now time.Time, limit int) ([]*models.ReservableItem, error)

	// Transition applies a state machine edge as a single conditional update.
	// Returns the updated item, or nil with no error when another actor won
	// the race and the guard no longer matches.
	Transition(ctx context.Context, collectionID int64, itemIndex int, t models.ItemTransition) (*models.ReservableItem, error)
}

// ReferralTokenRepository defines the interface for referral token lookup
type ReferralTokenRepository interface {
	// Get retrieves a token row, or nil if it does not exist
	Get(ctx context.Context, token string) (*models.ReferralToken, error)

	// Create stores a newly issued token
	Create(ctx context.Context, token *models.ReferralToken) error
}

// LedgerService is the only path by which a wallet balance changes
type LedgerService interface {
	// Credit adds amount to a wallet, creating it if absent. When reference
	// is non-empty and a transaction with that reference already exists for
	// the wallet, the call is a no-op returning the existing transaction.
	Credit(ctx context.Context, accountID int64, currency models.Currency, amount int64, description string, reference string, metadata map[string]any) (*models.LedgerTransaction, error)

	// Debit removes amount from a wallet, failing with ErrInsufficientFunds
	// if the balance would go negative. Same idempotency contract as Credit.
	Debit(ctx context.Context, accountID int64, currency models.Currency, amount int64, description string, reference string, metadata map[string]any) (*models.LedgerTransaction, error)

	// GetWallet returns the wallet, or ErrWalletNotFound
	GetWallet(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error)

	// GetTransactions returns the most recent ledger entries for a wallet
	GetTransactions(ctx context.Context, accountID int64, currency models.Currency, limit int) ([]*models.LedgerTransaction, error)
}

// ReservationService allocates unique items under a soft time limit
type ReservationService interface {
	// CreateCollection opens a raffle or bingo room and seeds its items
	CreateCollection(ctx context.Context, kind models.CollectionKind, hostAccountID int64, itemPrice int64, currency models.Currency, itemCount int) (*models.Collection, error)

	// GetCollection returns a collection, or ErrCollectionNotFound
	GetCollection(ctx context.Context, collectionID int64) (*models.Collection, error)

	// ListItems returns all items of a collection
	ListItems(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error)

	// Reserve claims an available item for holderID until now+ttl. Exactly
	// one of any set of concurrent calls on the same item succeeds; the rest
	// fail with ErrAlreadyReserved or ErrAlreadySold.
	Reserve(ctx context.Context, collectionID int64, itemIndex int, holderID int64, ttl time.Duration) (*models.ReservableItem, error)

	// Confirm settles a live reservation: the item becomes sold, the holder
	// is debited priceAmount and the collection host credited, all in one
	// transaction. ErrReservationExpired if the window has lapsed,
	// ErrInsufficientFunds releases the item back to available.
	Confirm(ctx context.Context, collectionID int64, itemIndex int, holderID int64, priceAmount int64, currency models.Currency) (*models.ReservableItem, error)

	// Release cancels a reservation. When holderID is non-nil it must match
	// the current holder or the call fails with ErrNotHolder.
	Release(ctx context.Context, collectionID int64, itemIndex int, holderID *int64) error

	// SettleCollection marks an open collection settled once its draw has
	// completed externally
	SettleCollection(ctx context.Context, collectionID int64) (*models.Collection, error)
}

// ReconcilerService reclaims abandoned reservations and refunds captured
// payments exactly once
type ReconcilerService interface {
	// Start arms the periodic sweeps
	Start()

	// Stop cancels the periodic sweeps and waits for in-flight runs
	Stop()

	// RefundAbandonedCollections claims abandoned open collections, refunds
	// captured payments and releases their items
	RefundAbandonedCollections(ctx context.Context) error

	// CleanupStaleCollections removes terminal collections past retention
	CleanupStaleCollections(ctx context.Context) error
}

// ReferralService resolves referral tokens without ever destabilizing the
// caller
type ReferralService interface {
	// Resolve maps a bearer token to its owning account. ok is false for
	// empty, unknown, expired and revoked tokens, and for lookup failures.
	Resolve(ctx context.Context, token string) (accountID int64, ok bool)

	// Issue creates a new active token for the owner
	Issue(ctx context.Context, ownerAccountID int64, expiresAt *time.Time) (*models.ReferralToken, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	WalletRepository() WalletRepository
	LedgerTransactionRepository() LedgerTransactionRepository
	CollectionRepository() CollectionRepository
	ItemRepository() ItemRepository
	ReferralTokenRepository() ReferralTokenRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
