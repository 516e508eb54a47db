package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tombola/events"
	"tombola/models"
)

type reservationService struct {
	uowFactory UnitOfWorkFactory
}

// NewReservationService creates a new reservation service
func NewReservationService(uowFactory UnitOfWorkFactory) ReservationService {
	return &reservationService{
		uowFactory: uowFactory,
	}
}

func (s *reservationService) CreateCollection(ctx context.Context, kind models.CollectionKind, hostAccountID int64, itemPrice int64, currency models.Currency, itemCount int) (*models.Collection, error) {
	if itemPrice < 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	if itemCount <= 0 {
		return nil, fmt.Errorf("item count must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	collection := &models.Collection{
		Kind:          kind,
		HostAccountID: hostAccountID,
		State:         models.CollectionStateOpen,
		ItemPrice:     itemPrice,
		Currency:      currency,
		ItemCount:     itemCount,
	}

	if err := uow.CollectionRepository().Create(ctx, collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	if err := uow.ItemRepository().CreateBatch(ctx, collection.ID, itemCount); err != nil {
		return nil, fmt.Errorf("failed to seed collection items: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return collection, nil
}

func (s *reservationService) GetCollection(ctx context.Context, collectionID int64) (*models.Collection, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	collection, err := uow.CollectionRepository().GetByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: %d", ErrCollectionNotFound, collectionID)
	}

	return collection, nil
}

func (s *reservationService) ListItems(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	collection, err := uow.CollectionRepository().GetByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: %d", ErrCollectionNotFound, collectionID)
	}

	items, err := uow.ItemRepository().ListByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	return items, nil
}

// Reserve claims an available item for holderID until now+ttl. The claim is
// one conditional update: of any number of concurrent calls on the same
// item, exactly one sees the available row and wins; the rest fail with a
// terminal error and must pick another item.
func (s *reservationService) Reserve(ctx context.Context, collectionID int64, itemIndex int, holderID int64, ttl time.Duration) (*models.ReservableItem, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	collection, err := uow.CollectionRepository().GetByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: %d", ErrCollectionNotFound, collectionID)
	}
	if !collection.IsOpen() {
		return nil, fmt.Errorf("%w: %d", ErrCollectionClosed, collectionID)
	}

	reservedUntil := time.Now().Add(ttl)
	item, err := uow.ItemRepository().Transition(ctx, collectionID, itemIndex,
		models.ReserveTransition(holderID, reservedUntil))
	if err != nil {
		return nil, fmt.Errorf("failed to reserve item: %w", err)
	}
	if item == nil {
		return nil, s.classifyClaimFailure(ctx, uow, collectionID, itemIndex)
	}

	if err := uow.CollectionRepository().TouchActivity(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("failed to touch collection activity: %w", err)
	}

	uow.EventBus().Publish(events.ItemReservedEvent{
		CollectionID:  collectionID,
		ItemIndex:     itemIndex,
		HolderID:      holderID,
		ReservedUntil: reservedUntil.Unix(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return item, nil
}

// Confirm settles a live reservation. The item transition, the holder's
// debit and the host's credit all ride the same database transaction: a
// failed debit rolls the sale back, and the reservation is then released.
func (s *reservationService) Confirm(ctx context.Context, collectionID int64, itemIndex int, holderID int64, priceAmount int64, currency models.Currency) (*models.ReservableItem, error) {
	if priceAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	collection, err := uow.CollectionRepository().GetByID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: %d", ErrCollectionNotFound, collectionID)
	}

	item, err := uow.ItemRepository().Transition(ctx, collectionID, itemIndex,
		models.ConfirmTransition(holderID, time.Now(), priceAmount))
	if err != nil {
		return nil, fmt.Errorf("failed to confirm item: %w", err)
	}
	if item == nil {
		return nil, s.classifyConfirmFailure(ctx, uow, collectionID, itemIndex, holderID)
	}

	purchaseMeta := map[string]any{
		"collection_id": collectionID,
		"item_index":    itemIndex,
	}

	if _, err := applyDebit(ctx, uow, holderID, currency, priceAmount,
		fmt.Sprintf("purchase of item %d in %s %d", itemIndex, collection.Kind, collectionID),
		"", purchaseMeta); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			// Roll the sale back and return the item to the pool so other
			// buyers are not blocked by a reservation that cannot pay.
			uow.Rollback()
			s.releaseAfterFailedSettlement(ctx, collectionID, itemIndex, holderID)
		}
		return nil, err
	}

	if _, err := applyCredit(ctx, uow, collection.HostAccountID, currency, priceAmount,
		fmt.Sprintf("sale of item %d in %s %d", itemIndex, collection.Kind, collectionID),
		"", purchaseMeta); err != nil {
		return nil, err
	}

	if err := uow.CollectionRepository().TouchActivity(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("failed to touch collection activity: %w", err)
	}

	uow.EventBus().Publish(events.ItemPurchasedEvent{
		CollectionID: collectionID,
		ItemIndex:    itemIndex,
		HolderID:     holderID,
		Amount:       priceAmount,
		Currency:     currency,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return item, nil
}

func (s *reservationService) Release(ctx context.Context, collectionID int64, itemIndex int, holderID *int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	var transition models.ItemTransition
	if holderID != nil {
		transition = models.ReleaseHeldTransition(*holderID)
	} else {
		transition = models.ReleaseTransition(models.ItemStateReserved)
	}

	item, err := uow.ItemRepository().Transition(ctx, collectionID, itemIndex, transition)
	if err != nil {
		return fmt.Errorf("failed to release item: %w", err)
	}
	if item == nil {
		current, err := uow.ItemRepository().Get(ctx, collectionID, itemIndex)
		if err != nil {
			return fmt.Errorf("failed to check item: %w", err)
		}
		switch {
		case current == nil:
			return fmt.Errorf("%w: %d/%d", ErrItemNotFound, collectionID, itemIndex)
		case current.State == models.ItemStateSold:
			return fmt.Errorf("%w: %d/%d", ErrAlreadySold, collectionID, itemIndex)
		case current.State == models.ItemStateAvailable:
			// Already released; nothing to do.
			return nil
		default:
			return fmt.Errorf("%w: %d/%d", ErrNotHolder, collectionID, itemIndex)
		}
	}

	uow.EventBus().Publish(events.ItemReleasedEvent{
		CollectionID: collectionID,
		ItemIndex:    itemIndex,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *reservationService) SettleCollection(ctx context.Context, collectionID int64) (*models.Collection, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	collection, err := uow.CollectionRepository().TransitionState(ctx, collectionID,
		models.CollectionStateOpen, models.CollectionStateSettled)
	if err != nil {
		return nil, fmt.Errorf("failed to settle collection: %w", err)
	}
	if collection == nil {
		current, err := uow.CollectionRepository().GetByID(ctx, collectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check collection: %w", err)
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %d", ErrCollectionNotFound, collectionID)
		}
		return nil, fmt.Errorf("%w: %d is %s", ErrCollectionClosed, collectionID, current.State)
	}

	uow.EventBus().Publish(events.CollectionSettledEvent{
		CollectionID: collectionID,
		Kind:         collection.Kind,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return collection, nil
}

// classifyClaimFailure re-reads an item after a lost reserve race to map the
// outcome onto the error taxonomy
func (s *reservationService) classifyClaimFailure(ctx context.Context, uow UnitOfWork, collectionID int64, itemIndex int) error {
	item, err := uow.ItemRepository().Get(ctx, collectionID, itemIndex)
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	switch {
	case item == nil:
		return fmt.Errorf("%w: %d/%d", ErrItemNotFound, collectionID, itemIndex)
	case item.State == models.ItemStateSold:
		return fmt.Errorf("%w: %d/%d", ErrAlreadySold, collectionID, itemIndex)
	default:
		return fmt.Errorf("%w: %d/%d", ErrAlreadyReserved, collectionID, itemIndex)
	}
}

// classifyConfirmFailure re-reads an item after a failed confirm transition
func (s *reservationService) classifyConfirmFailure(ctx context.Context, uow UnitOfWork, collectionID int64, itemIndex int, holderID int64) error {
	item, err := uow.ItemRepository().Get(ctx, collectionID, itemIndex)
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	switch {
	case item == nil:
		return fmt.Errorf("%w: %d/%d", ErrItemNotFound, collectionID, itemIndex)
	case item.State == models.ItemStateSold:
		return fmt.Errorf("%w: %d/%d", ErrAlreadySold, collectionID, itemIndex)
	case item.State == models.ItemStateReserved && !item.IsHeldBy(holderID):
		return fmt.Errorf("%w: %d/%d", ErrNotHolder, collectionID, itemIndex)
	default:
		// Either the hold lapsed (the reconciler will release it) or the
		// item was already released back to the pool.
		return fmt.Errorf("%w: %d/%d", ErrReservationExpired, collectionID, itemIndex)
	}
}

// releaseAfterFailedSettlement returns a reservation to the pool after its
// settlement was rolled back for insufficient funds. Best-effort: if the
// release itself fails the reconciler picks the item up once it expires.
func (s *reservationService) releaseAfterFailedSettlement(ctx context.Context, collectionID int64, itemIndex int, holderID int64) {
	if err := s.Release(ctx, collectionID, itemIndex, &holderID); err != nil {
		log.WithFields(log.Fields{
			"collectionID": collectionID,
			"itemIndex":    itemIndex,
			"holderID":     holderID,
		}).WithError(err).Warn("Failed to release reservation after failed settlement")
	}
}
