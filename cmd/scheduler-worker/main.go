package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/railwatch/delay-tracker/internal/clients"
	"github.com/railwatch/delay-tracker/internal/delayalerts"
	"github.com/railwatch/delay-tracker/internal/detection"
	"github.com/railwatch/delay-tracker/internal/journeys"
	"github.com/railwatch/delay-tracker/internal/scheduler"
	"github.com/railwatch/delay-tracker/pkg/config"
	"github.com/railwatch/delay-tracker/pkg/db"
	"github.com/railwatch/delay-tracker/pkg/logger"
	"github.com/railwatch/delay-tracker/pkg/metrics"
	"github.com/railwatch/delay-tracker/pkg/migrate"
	"github.com/railwatch/delay-tracker/pkg/outbox"
	"github.com/railwatch/delay-tracker/pkg/outbox/idempotency"
	"github.com/railwatch/delay-tracker/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "scheduler-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "scheduler-worker"

	logg = logger.New(logger.Options{
		ServiceName: "scheduler-worker",
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

	detector, err := detection.NewDetector(cfg.Detection.ThresholdMinutes)
	if err != nil {
		logg.Error(context.Background(), "failed to build detector", err)
		os.Exit(1)
	}

	journeyRepo := journeys.NewRepository(dbClient.DB())
	monitor := journeys.NewMonitor(journeyRepo, cfg.Scheduler.TickInterval)
	alertRepo := delayalerts.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	matcher := clients.NewJourneyMatcherClient(cfg.Services.JourneyMatcherBaseURL, cfg.Services.JourneyMatcherTimeout)
	delaysClient := clients.NewUpstreamDelaysClient(cfg.Services.UpstreamDelaysBaseURL, cfg.Services.UpstreamDelaysTimeout)
	oracle := clients.NewClaimsOracleClient(cfg.Services.ClaimsOracleBaseURL, cfg.Services.ClaimsOracleTimeout)
	claimTrigger := detection.NewClaimTrigger(oracle, cfg.Detection.ThresholdMinutes)

	idempotencyMgr, err := idempotency.NewManager(redisClient, cfg.Redis.IdempotencyCacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to build claims idempotency cache", err)
		os.Exit(1)
	}
	claimTrigger = claimTrigger.WithIdempotency(idempotencyMgr)

	orchestrator := detection.NewOrchestrator(detection.Config{
		DBClient:     dbClient,
		JourneyRepo:  journeyRepo,
		Monitor:      monitor,
		AlertRepo:    alertRepo,
		Matcher:      matcher,
		DelaysClient: delaysClient,
		Detector:     detector,
		ClaimTrigger: claimTrigger,
		OutboxSvc:    outboxSvc,
		Logger:       logg,
		DueSetLimit:  cfg.Scheduler.BatchSize,
	})

	tickerMetrics := metrics.NewTickerMetrics(prometheus.DefaultRegisterer)

	var lock scheduler.Lock
	if cfg.Scheduler.LockRequired {
		lock, err = scheduler.NewRedisLock(redisClient, redisClient.LockKey(cfg.Scheduler.LockKey), cfg.Redis.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create scheduler lock", err)
			os.Exit(1)
		}
	}

	sched, err := scheduler.New(scheduler.Params{
		Logger:       logg,
		Orchestrator: orchestrator,
		Metrics:      tickerMetrics,
		Interval:     cfg.Scheduler.TickInterval,
		Lock:         lock,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting scheduler worker")

	sched.Start(ctx)
	<-ctx.Done()
	sched.Stop()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scheduler worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "scheduler worker shut down gracefully")
}
