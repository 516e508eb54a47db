package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"tombola/events"
	"tombola/models"
)

// ReconcilerConfig holds the sweep periods and thresholds
type ReconcilerConfig struct {
	// RefundInterval is how often the refund sweep runs
	RefundInterval time.Duration
	// CleanupInterval is how often the cleanup sweep runs
	CleanupInterval time.Duration
	// AbandonAfter is the inactivity window after which an open collection
	// counts as abandoned
	AbandonAfter time.Duration
	// RetainFor is how long terminal collections are kept before deletion
	RetainFor time.Duration
}

type reconcilerService struct {
	uowFactory UnitOfWorkFactory
	cfg        ReconcilerConfig
	cron       *cron.Cron
}

// NewReconcilerService creates a new abandonment reconciler. Call Start to
// arm the periodic sweeps; both sweeps are also callable directly.
func NewReconcilerService(uowFactory UnitOfWorkFactory, cfg ReconcilerConfig) ReconcilerService {
	return &reconcilerService{
		uowFactory: uowFactory,
		cfg:        cfg,
		cron:       cron.New(),
	}
}

// Start arms the periodic sweeps
func (s *reconcilerService) Start() {
	s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.RefundInterval), func() {
		if err := s.RefundAbandonedCollections(context.Background()); err != nil {
			log.WithError(err).Error("Refund sweep failed")
		}
	})
	s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.CleanupInterval), func() {
		if err := s.CleanupStaleCollections(context.Background()); err != nil {
			log.WithError(err).Error("Cleanup sweep failed")
		}
	})

	s.cron.Start()
	log.WithFields(log.Fields{
		"refundInterval":  s.cfg.RefundInterval,
		"cleanupInterval": s.cfg.CleanupInterval,
	}).Info("Reconciler sweeps armed")
}

// Stop cancels the periodic sweeps and waits for in-flight runs
func (s *reconcilerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Reconciler sweeps stopped")
}

// RefundAbandonedCollections scans for open collections past the inactivity
// threshold, claims each with a conditional state update, refunds every
// captured payment exactly once and releases the held items. A failure in
// one collection is logged and does not abort the sweep; the whole sweep is
// simply retried at the next tick.
func (s *reconcilerService) RefundAbandonedCollections(ctx context.Context) error {
	candidates, err := s.findAbandonedCandidates(ctx)
	if err != nil {
		return err
	}

	for _, collection := range candidates {
		if err := s.refundCollection(ctx, collection.ID); err != nil {
			log.WithFields(log.Fields{
				"collectionID": collection.ID,
				"kind":         collection.Kind,
			}).WithError(err).Error("Failed to reconcile abandoned collection")
		}
	}

	if err := s.reclaimExpiredReservations(ctx); err != nil {
		log.WithError(err).Error("Failed to reclaim expired reservations")
	}

	return nil
}

// CleanupStaleCollections removes terminal collections past retention; a
// pure garbage-collection pass with no financial effect
func (s *reconcilerService) CleanupStaleCollections(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	cutoff := time.Now().Add(-s.cfg.RetainFor)
	removed, err := uow.CollectionRepository().DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete stale collections: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if removed > 0 {
		log.WithField("removed", removed).Info("Cleaned up stale collections")
	}

	return nil
}

func (s *reconcilerService) findAbandonedCandidates(ctx context.Context) ([]*models.Collection, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	cutoff := time.Now().Add(-s.cfg.AbandonAfter)
	candidates, err := uow.CollectionRepository().GetOpenInactiveSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find abandoned collections: %w", err)
	}

	return candidates, nil
}

// refundCollection processes one abandoned collection. The conditional
// open→abandoned claim, the refunds and the item releases share a single
// database transaction, and each refund carries a reference key derived
// from the item identity, so neither an overlapping sweep instance nor a
// retried sweep can double-refund.
func (s *reconcilerService) refundCollection(ctx context.Context, collectionID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	claimed, err := uow.CollectionRepository().TransitionState(ctx, collectionID,
		models.CollectionStateOpen, models.CollectionStateAbandoned)
	if err != nil {
		return fmt.Errorf("failed to claim collection: %w", err)
	}
	if claimed == nil {
		// Another sweep instance claimed it first.
		return nil
	}

	items, err := uow.ItemRepository().ListHeldByCollection(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("failed to list held items: %w", err)
	}

	refunded := 0
	for _, item := range items {
		if item.PaidAmount != nil && *item.PaidAmount > 0 && item.HolderID != nil {
			reference := fmt.Sprintf("refund:%d:%d", collectionID, item.ItemIndex)
			_, err := applyCredit(ctx, uow, *item.HolderID, claimed.Currency, *item.PaidAmount,
				fmt.Sprintf("refund for abandoned %s %d", claimed.Kind, collectionID),
				reference, map[string]any{
					"collection_id": collectionID,
					"item_index":    item.ItemIndex,
				})
			if err != nil {
				return fmt.Errorf("failed to refund item %d: %w", item.ItemIndex, err)
			}
			refunded++
		}

		released, err := uow.ItemRepository().Transition(ctx, collectionID, item.ItemIndex,
			models.ReleaseTransition(item.State))
		if err != nil {
			return fmt.Errorf("failed to release item %d: %w", item.ItemIndex, err)
		}
		if released != nil {
			uow.EventBus().Publish(events.ItemReleasedEvent{
				CollectionID: collectionID,
				ItemIndex:    item.ItemIndex,
			})
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"collectionID": collectionID,
		"heldItems":    len(items),
		"refunded":     refunded,
	}).Info("Reconciled abandoned collection")

	return nil
}

// reclaimExpiredReservations releases individually lapsed reservations in
// otherwise live collections. No payment was captured for these, so there
// is no ledger effect.
func (s *reconcilerService) reclaimExpiredReservations(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	const batchSize = 500
	expired, err := uow.ItemRepository().ListExpiredReserved(ctx, time.Now(), batchSize)
	if err != nil {
		return fmt.Errorf("failed to list expired reservations: %w", err)
	}

	reclaimed := 0
	for _, item := range expired {
		released, err := uow.ItemRepository().Transition(ctx, item.CollectionID, item.ItemIndex,
			models.ReclaimExpiredTransition())
		if err != nil {
			return fmt.Errorf("failed to reclaim item %d/%d: %w", item.CollectionID, item.ItemIndex, err)
		}
		if released != nil {
			reclaimed++
			uow.EventBus().Publish(events.ItemReleasedEvent{
				CollectionID: item.CollectionID,
				ItemIndex:    item.ItemIndex,
			})
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if reclaimed > 0 {
		log.WithField("reclaimed", reclaimed).Info("Reclaimed expired reservations")
	}

	return nil
}
