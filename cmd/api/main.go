package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/givefi/givefi-backend/api/routes"
	"github.com/givefi/givefi-backend/internal/causes"
	"github.com/givefi/givefi-backend/internal/disbursements"
	"github.com/givefi/givefi-backend/internal/donations"
	"github.com/givefi/givefi-backend/internal/trace"
	"github.com/givefi/givefi-backend/pkg/config"
	"github.com/givefi/givefi-backend/pkg/db"
	"github.com/givefi/givefi-backend/pkg/logger"
	"github.com/givefi/givefi-backend/pkg/metrics"
	"github.com/givefi/givefi-backend/pkg/migrate"
	"github.com/givefi/givefi-backend/pkg/redis"
	"github.com/givefi/givefi-backend/pkg/xrpl"
)

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

	ledgerClient, err := xrpl.NewClient(context.Background(), cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap ledger client", err)
		os.Exit(1)
	}

	causeService, err := causes.NewService(causes.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create cause service", err)
		os.Exit(1)
	}

	donationService, err := donations.NewService(donations.NewRepository(dbClient.DB()), causeService)
	if err != nil {
		logg.Error(context.Background(), "failed to create donation service", err)
		os.Exit(1)
	}

	causeLocker, err := disbursements.NewCauseLocker(redisClient, cfg.Allocation.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cause locker", err)
		os.Exit(1)
	}

	disbursementService, err := disbursements.NewService(
		disbursements.NewRepository(dbClient.DB()),
		causeService,
		dbClient,
		causeLocker,
		logg,
		metrics.NewAllocationMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create disbursement service", err)
		os.Exit(1)
	}

	traverser, err := trace.NewTraverser(ledgerClient, cfg.Trace, logg, metrics.NewTraceMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(context.Background(), "failed to create traverser", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ledgerClient,
			causeService,
			donationService,
			disbursementService,
			traverser,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
