package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"account-service/internal/api"
	"account-service/internal/config"
	"account-service/internal/events"
	"account-service/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	api.SetupGlobalHandler("account-worker", cfg.SlogLevel())

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	subscriber, err := events.NewAccountEventSubscriber(cfg.NatsURL, repository.NewPostgresAccountEventRepository(db))
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	slog.Info("Account worker started, waiting for events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down account worker...")
	subscriber.Close()
}
