package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/healthpool/riskpool/internal/jobs"
	"github.com/healthpool/riskpool/internal/pool"
)

// ConservationVerifier reads and checks the pool account.
type ConservationVerifier interface {
	VerifyConservation(ctx context.Context) (pool.Account, error)
}

// IntegrityJob handles pool:integrity tasks.
type IntegrityJob struct {
	Pool    ConservationVerifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityJob initialises the pool integrity handler.
func NewIntegrityJob(verifier ConservationVerifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{Pool: verifier, Logger: logger, Metrics: metrics}
}

// Handle publishes the pool totals and counts any conservation violation.
func (j *IntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Pool == nil {
		return errors.New("pool integrity: handler not configured")
	}
	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskPoolIntegrity)
	defer func() { err = tracker.End(err) }()

	logger := loggerFor(j.Logger, TaskPoolIntegrity)
	acct, err := j.Pool.VerifyConservation(ctx)
	if err != nil && !errors.Is(err, pool.ErrConservationViolated) {
		logger.Error("load pool account", slog.Any("error", err))
		return err
	}
	metrics.SetPool(jobmetrics.PoolTotals{
		Deposits:   uint64(acct.TotalDeposits),
		AdminFees:  uint64(acct.TotalAdminFees),
		ClaimsPaid: uint64(acct.TotalClaimsPaid),
		Balance:    uint64(acct.CurrentBalance),
	})
	if err != nil {
		metrics.AddViolation()
		logger.Error("pool conservation violated", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger.Info("pool conserved", slog.String("balance", acct.CurrentBalance.String()))
	return nil
}
