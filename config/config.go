package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string `envconfig:"DATABASE_URL"`
	MaxDBConns  int32  `envconfig:"MAX_DB_CONNS" default:"10"`

	// Redis configuration for the broadcast channel
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Reservation configuration
	ReservationTTL time.Duration `envconfig:"RESERVATION_TTL" default:"5m"`

	// Reconciler configuration
	RefundSweepInterval  time.Duration `envconfig:"REFUND_SWEEP_INTERVAL" default:"1m"`
	CleanupSweepInterval time.Duration `envconfig:"CLEANUP_SWEEP_INTERVAL" default:"1h"`
	AbandonAfter         time.Duration `envconfig:"ABANDON_AFTER" default:"30m"`
	RetainFor            time.Duration `envconfig:"RETAIN_FOR" default:"720h"`

	// Environment is "development", "production" or "test"
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return &config, nil
}
