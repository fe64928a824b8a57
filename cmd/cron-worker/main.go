package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gavelpoint/auctionhouse-backend/internal/auctions"
	"github.com/gavelpoint/auctionhouse-backend/internal/bids"
	"github.com/gavelpoint/auctionhouse-backend/internal/cron"
	"github.com/gavelpoint/auctionhouse-backend/internal/jewelry"
	"github.com/gavelpoint/auctionhouse-backend/internal/settlement"
	"github.com/gavelpoint/auctionhouse-backend/internal/users"
	"github.com/gavelpoint/auctionhouse-backend/pkg/config"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/metrics"
	"github.com/gavelpoint/auctionhouse-backend/pkg/migrate"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/redis"
)

const lockKeyFormat = "ah:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	auctionsRepo := auctions.NewRepository(dbClient.DB())
	bidsRepo := bids.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())

	settlementSvc, err := settlement.NewService(settlementRepo, bidsRepo, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	auctionsSvc, err := auctions.NewService(
		auctionsRepo,
		users.NewRepository(dbClient.DB()),
		jewelry.NewRepository(dbClient.DB()),
		settlementSvc,
		dbClient,
		outboxSvc,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	closeJob, err := cron.NewAuctionCloseJob(cron.AuctionCloseJobParams{
		Logger: logg,
		Reader: auctionsRepo,
		Closer: auctionsSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auction close job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(closeJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
