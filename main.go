package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"tombola/cmd"
	"tombola/config"
	"tombola/database"
)

func main() {
	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.WithError(err).Fatal("Migration error")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: tombola migrate [up|down|status] [args...]")
	}

	databaseURL := config.Get().DatabaseURL

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}
