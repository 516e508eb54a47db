package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tombola/broadcast"
	"tombola/config"
	"tombola/database"
	"tombola/events"
	"tombola/repository"
	"tombola/service"
)

// Run starts the background side of the platform: the abandonment
// reconciler sweeps and the redis broadcast bridge. The ledger, reservation
// and referral services are the embeddable surface and are constructed by
// the hosting application against the same database.
func Run(ctx context.Context) error {
	log.Info("Starting tombola...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	log.Info("Connecting to redis...")
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	broadcaster := broadcast.NewRedisBroadcaster(redisClient)
	broadcaster.Register(eventBus)

	reconciler := service.NewReconcilerService(uowFactory, service.ReconcilerConfig{
		RefundInterval:  cfg.RefundSweepInterval,
		CleanupInterval: cfg.CleanupSweepInterval,
		AbandonAfter:    cfg.AbandonAfter,
		RetainFor:       cfg.RetainFor,
	})
	reconciler.Start()

	log.WithField("environment", cfg.Environment).Info("Tombola is running")
	<-ctx.Done()

	log.Info("Shutting down...")
	reconciler.Stop()

	if err := redisClient.Close(); err != nil {
		log.WithError(err).Warn("Error closing redis client")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
