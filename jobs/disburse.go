package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/healthpool/riskpool/internal/claims"
	jobmetrics "github.com/healthpool/riskpool/internal/jobs"
	"github.com/healthpool/riskpool/internal/shared"
)

// Disburser pays an approved claim.
type Disburser interface {
	Disburse(ctx context.Context, id int64) (claims.Claim, error)
}

// DisburseJob handles claims:disburse tasks.
type DisburseJob struct {
	Claims  Disburser
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDisburseJob initialises the disbursement handler.
func NewDisburseJob(svc Disburser, logger *slog.Logger, metrics *jobmetrics.Metrics) *DisburseJob {
	return &DisburseJob{Claims: svc, Logger: logger, Metrics: metrics}
}

// Handle pays the claim named in the payload. A claim already paid is a
// success. A pool shortfall and infrastructure failures are retried; other
// ledger rejections skip retry.
func (j *DisburseJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Claims == nil {
		return errors.New("disburse: handler not configured")
	}
	var payload DisbursePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.ClaimID <= 0 {
		return asynq.SkipRetry
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskClaimsDisburse)
	defer func() { err = tracker.End(err) }()

	logger := loggerFor(j.Logger, TaskClaimsDisburse).With(slog.Int64("claim_id", payload.ClaimID))
	claim, err := j.Claims.Disburse(ctx, payload.ClaimID)
	switch {
	case err == nil:
		logger.Info("claim disbursed",
			slog.String("participant", claim.Participant.String()),
			slog.String("amount", claim.Amount.String()),
		)
		return nil
	case errors.Is(err, claims.ErrAlreadyDisbursed):
		logger.Info("claim already disbursed")
		return nil
	case errors.Is(err, shared.ErrInsufficientFunds):
		logger.Warn("pool cannot cover claim yet", slog.Any("error", err))
		return err
	case shared.KindOf(err) != nil:
		logger.Warn("disbursement rejected", slog.String("reason", shared.ReasonCode(err)), slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		logger.Error("disbursement failed", slog.Any("error", err))
		return err
	}
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func loggerFor(logger *slog.Logger, job string) *slog.Logger {
	if logger != nil {
		return logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}
