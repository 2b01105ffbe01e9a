package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/healthpool/riskpool/internal/app"
	jobmetrics "github.com/healthpool/riskpool/internal/jobs"
	"github.com/healthpool/riskpool/jobs"
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
	if cfg.StoreBackend != app.BackendPostgres {
		logger.Warn("worker running on the memory backend sees none of the API's state")
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts)
	defer client.Close()

	a, err := app.Build(ctx, cfg, logger, app.WithScheduler(client))
	if err != nil {
		logger.Error("build application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close application", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(a.Metrics.Registerer())
	disburseJob := jobs.NewDisburseJob(a.Claims, logger, metrics)
	integrityJob := jobs.NewIntegrityJob(a.Pool, logger, metrics)
	lapseJob := jobs.NewLapseScanJob(a.Membership, logger, metrics)
	sweepJob := jobs.NewSweepJob(a.Claims, client, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskClaimsDisburse, Handler: disburseJob.Handle},
			{Type: jobs.TaskPoolIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskMembershipLapseScan, Handler: lapseJob.Handle},
			{Type: jobs.TaskClaimsSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: jobs.NewPoolIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: cfg.LapseScanCron, Task: jobs.NewLapseScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.SweepCron, Task: jobs.NewSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
