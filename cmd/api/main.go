package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gavelpoint/auctionhouse-backend/api/routes"
	"github.com/gavelpoint/auctionhouse-backend/internal/auctions"
	"github.com/gavelpoint/auctionhouse-backend/internal/bids"
	"github.com/gavelpoint/auctionhouse-backend/internal/jewelry"
	"github.com/gavelpoint/auctionhouse-backend/internal/notifications"
	"github.com/gavelpoint/auctionhouse-backend/internal/registrations"
	"github.com/gavelpoint/auctionhouse-backend/internal/settlement"
	"github.com/gavelpoint/auctionhouse-backend/internal/users"
	"github.com/gavelpoint/auctionhouse-backend/pkg/config"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/migrate"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/pubsub"
	"github.com/gavelpoint/auctionhouse-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	usersRepo := users.NewRepository(dbClient.DB())
	jewelryRepo := jewelry.NewRepository(dbClient.DB())
	auctionsRepo := auctions.NewRepository(dbClient.DB())
	registrationsRepo := registrations.NewRepository(dbClient.DB())
	bidsRepo := bids.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	settlementSvc, err := settlement.NewService(settlementRepo, bidsRepo, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	auctionsSvc, err := auctions.NewService(auctionsRepo, usersRepo, jewelryRepo, settlementSvc, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	registrationsSvc, err := registrations.NewService(registrationsRepo, usersRepo, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create registration service", err)
		os.Exit(1)
	}

	bidsSvc, err := bids.NewService(bidsRepo, registrationsRepo, dbClient, outboxSvc, redisClient, cfg.Bidding, cfg.AuthRateLimit)
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	usersSvc, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	jewelrySvc, err := jewelry.NewService(jewelryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create jewelry service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, pubsubClient, routes.Services{
			Auctions:      auctionsSvc,
			Registrations: registrationsSvc,
			Bids:          bidsSvc,
			Settlement:    settlementSvc,
			Notifications: notificationsSvc,
			Users:         usersSvc,
			Jewelry:       jewelrySvc,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
