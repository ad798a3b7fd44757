package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/backoffice/internal/app"
	jobmetrics "github.com/kitchenledger/backoffice/internal/jobs"
	"github.com/kitchenledger/backoffice/internal/observability"
	"github.com/kitchenledger/backoffice/internal/platform/cache"
	"github.com/kitchenledger/backoffice/internal/platform/db"
	"github.com/kitchenledger/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	policy, err := app.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("load policy", slog.Any("error", err))
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("resolve timezone", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: int32(cfg.WorkerConcurrency) + 2})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The worker cannot run without Redis, so a failed ping is fatal here.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services, err := app.BuildServices(app.ServiceDeps{
		Pool:     pool,
		Redis:    redisClient,
		Logger:   logger,
		Metrics:  metrics,
		Policy:   policy,
		Location: loc,
		CacheTTL: cfg.ReportCacheTTL,
	})
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}

	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	salaryJob := jobs.NewSalaryJob(services.Materializer, loc, logger, jobMetrics)
	warmupJob := jobs.NewWarmupJob(services.Reports, loc, logger, jobMetrics)

	salaryTask, err := jobs.NewPayrollMaterializeTask("")
	if err != nil {
		logger.Error("build salary task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportingWarmupTask("")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPayrollMaterialize, Handler: salaryJob.Handle},
			{Type: jobs.TaskReportingWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 5 * * *", Task: salaryTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(5 * time.Minute)}},
			{Spec: "10 5 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
