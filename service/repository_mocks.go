package service

import (
	"context"
	"time"

	"tombola/events"
	"tombola/models"

	"github.com/stretchr/testify/mock"
)

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Get(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	args := m.Called(ctx, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetForUpdate(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	args := m.Called(ctx, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Create(ctx context.Context, accountID int64, currency models.Currency) (*models.Wallet, error) {
	args := m.Called(ctx, accountID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

// MockLedgerTransactionRepository is a mock implementation of LedgerTransactionRepository
type MockLedgerTransactionRepository struct {
	mock.Mock
}

func (m *MockLedgerTransactionRepository) Insert(ctx context.Context, txn *models.LedgerTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockLedgerTransactionRepository) GetByReference(ctx context.Context, accountID int64, currency models.Currency, reference string) (*models.LedgerTransaction, error) {
	args := m.Called(ctx, accountID, currency, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerTransaction), args.Error(1)
}

func (m *MockLedgerTransactionRepository) GetByWallet(ctx context.Context, accountID int64, currency models.Currency, limit int) ([]*models.LedgerTransaction, error) {
	args := m.Called(ctx, accountID, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerTransaction), args.Error(1)
}

func (m *MockLedgerTransactionRepository) SumAmounts(ctx context.Context, accountID int64, currency models.Currency) (int64, error) {
	args := m.Called(ctx, accountID, currency)
	return args.Get(0).(int64), args.Error(1)
}

// MockCollectionRepository is a mock implementation of CollectionRepository
type MockCollectionRepository struct {
	mock.Mock
}

func (m *MockCollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

func (m *MockCollectionRepository) GetByID(ctx context.Context, id int64) (*models.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionRepository) TransitionState(ctx context.Context, id int64, from, to models.CollectionState) (*models.Collection, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionRepository) TouchActivity(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCollectionRepository) GetOpenInactiveSince(ctx context.Context, cutoff time.Time) ([]*models.Collection, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Collection), args.Error(1)
}

func (m *MockCollectionRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockItemRepository is a mock implementation of ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) CreateBatch(ctx context.Context, collectionID int64, count int) error {
	args := m.Called(ctx, collectionID, count)
	return args.Error(0)
}

func (m *MockItemRepository) Get(ctx context.Context, collectionID int64, itemIndex int) (*models.ReservableItem, error) {
	args := m.Called(ctx, collectionID, itemIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservableItem), args.Error(1)
}

func (m *MockItemRepository) ListByCollection(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReservableItem), args.Error(1)
}

func (m *MockItemRepository) ListHeldByCollection(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReservableItem), args.Error(1)
}

func (m *MockItemRepository) ListExpiredReserved(ctx context.Context, now time.Time, limit int) ([]*models.ReservableItem, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReservableItem), args.Error(1)
}

func (m *MockItemRepository) Transition(ctx context.Context, collectionID int64, itemIndex int, t models.ItemTransition) (*models.ReservableItem, error) {
	args := m.Called(ctx, collectionID, itemIndex, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservableItem), args.Error(1)
}

// MockReferralTokenRepository is a mock implementation of ReferralTokenRepository
type MockReferralTokenRepository struct {
	mock.Mock
}

func (m *MockReferralTokenRepository) Get(ctx context.Context, token string) (*models.ReferralToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralToken), args.Error(1)
}

func (m *MockReferralTokenRepository) Create(ctx context.Context, token *models.ReferralToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// recordingPublisher collects published events without expectations, for
// tests that only care about what was emitted
type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.published = append(p.published, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback go through mock expectations; the repository getters return
// whatever SetRepositories stored.
type MockUnitOfWork struct {
	mock.Mock

	walletRepo   WalletRepository
	ledgerRepo   LedgerTransactionRepository
	collRepo     CollectionRepository
	itemRepo     ItemRepository
	referralRepo ReferralTokenRepository
	eventBus     EventPublisher
}

// SetRepositories configures the repositories returned by the getters. Any
// argument may be nil when the code under test never touches it.
func (m *MockUnitOfWork) SetRepositories(wallet WalletRepository, ledger LedgerTransactionRepository, coll CollectionRepository, item ItemRepository, referral ReferralTokenRepository, bus EventPublisher) {
	m.walletRepo = wallet
	m.ledgerRepo = ledger
	m.collRepo = coll
	m.itemRepo = item
	m.referralRepo = referral
	if bus == nil {
		bus = &recordingPublisher{}
	}
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) WalletRepository() WalletRepository { return m.walletRepo }

func (m *MockUnitOfWork) LedgerTransactionRepository() LedgerTransactionRepository {
	return m.ledgerRepo
}

func (m *MockUnitOfWork) CollectionRepository() CollectionRepository { return m.collRepo }

func (m *MockUnitOfWork) ItemRepository() ItemRepository { return m.itemRepo }

func (m *MockUnitOfWork) ReferralTokenRepository() ReferralTokenRepository { return m.referralRepo }

func (m *MockUnitOfWork) EventBus() EventPublisher { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
