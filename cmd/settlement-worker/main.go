package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/givefi/givefi-backend/internal/causes"
	"github.com/givefi/givefi-backend/internal/consumers/settlement"
	"github.com/givefi/givefi-backend/internal/disbursements"
	"github.com/givefi/givefi-backend/pkg/config"
	"github.com/givefi/givefi-backend/pkg/db"
	"github.com/givefi/givefi-backend/pkg/logger"
	"github.com/givefi/givefi-backend/pkg/metrics"
	"github.com/givefi/givefi-backend/pkg/pubsub"
	"github.com/givefi/givefi-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "settlement-worker"

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	causeService, err := causes.NewService(causes.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "cause service", err)

	causeLocker, err := disbursements.NewCauseLocker(redisClient, cfg.Allocation.LockTTL)
	requireResource(ctx, logg, "cause locker", err)

	disbursementService, err := disbursements.NewService(
		disbursements.NewRepository(dbClient.DB()),
		causeService,
		dbClient,
		causeLocker,
		logg,
		metrics.NewAllocationMetrics(prometheus.DefaultRegisterer),
	)
	requireResource(ctx, logg, "disbursement service", err)

	consumer, err := settlement.NewConsumer(
		disbursementService,
		pubsubClient.SettlementSubscription(),
		logg,
	)
	requireResource(ctx, logg, "settlement consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "settlement worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
