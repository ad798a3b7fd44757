package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/backoffice/cmd/backoffice/cli"
	"github.com/kitchenledger/backoffice/internal/app"
	"github.com/kitchenledger/backoffice/internal/observability"
	"github.com/kitchenledger/backoffice/internal/platform/cache"
	"github.com/kitchenledger/backoffice/internal/platform/db"
	"github.com/kitchenledger/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, logger, os.Args[2:]))
	}

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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConnLifetime: time.Hour})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Reports are computed directly when Redis is down.
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	services, err := app.BuildServices(app.ServiceDeps{
		Pool:     dbpool,
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
	services.Cache.ListenForInvalidation(ctx)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	params := services.Handlers(logger, cfg)
	params.Pool = dbpool
	params.Metrics = metrics
	params.JobHandler = jobs.NewHandler(inspector, logger)
	router := app.NewRouter(params)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobs(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		logger.Error("jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()

	out, err := jobsCLI.Run(ctx, args)
	if err != nil {
		logger.Error("jobs cli", slog.Any("error", err))
		return 1
	}
	fmt.Println(out)
	return 0
}
