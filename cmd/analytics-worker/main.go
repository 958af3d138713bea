package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moral-torture-machine/internal/config"
	"moral-torture-machine/internal/database"
	"moral-torture-machine/internal/logger"
	"moral-torture-machine/internal/messaging"
	"moral-torture-machine/internal/repository"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogEncoding, Service: "analytics-worker"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log = log.Named("AnalyticsWorker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgPool, err := database.Connect(ctx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := database.NewMigrator(cfg.GetDSN(), log).Up(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	mqConn, err := messaging.Connect(ctx, cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	store := repository.NewPgAnalyticsRepository(pgPool, log)
	consumer, err := messaging.NewAnalyticsConsumer(mqConn, cfg.AnalyticsQueueName, store, log)
	if err != nil {
		log.Fatal("Failed to create analytics consumer", zap.Error(err))
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		log.Info("Starting analytics consumer", zap.String("queue", cfg.AnalyticsQueueName))
		if err := consumer.StartConsuming(ctx); err != nil {
			log.Error("Analytics consumer stopped with error", zap.Error(err))
			stop()
			return
		}
		log.Info("Analytics consumer stopped gracefully")
	}()

	go runCleanup(ctx, store, cfg.AnalyticsCleanupTick, log)

	<-ctx.Done()
	log.Info("Shutting down analytics worker...")
	if err := consumer.Stop(); err != nil {
		log.Error("Error stopping analytics consumer", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-time.After(cfg.ShutdownTimeout):
		log.Warn("Analytics consumer did not stop in time")
	}
	log.Info("Analytics worker exiting")
}

// runCleanup deletes events past their 90 day expiry on every tick.
func runCleanup(ctx context.Context, store repository.AnalyticsRepository, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			deleted, err := store.DeleteExpired(ctx, now.UnixMilli())
			if err != nil {
				log.Error("Failed to delete expired analytics events", zap.Error(err))
				continue
			}
			if deleted > 0 {
				log.Info("Expired analytics events deleted", zap.Int64("deleted", deleted))
			}
		}
	}
}
