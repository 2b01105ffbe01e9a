package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/healthpool/riskpool/internal/claims"
	jobmetrics "github.com/healthpool/riskpool/internal/jobs"
)

// TaskClaimsSweep re-queues approved claims that are still unpaid.
const TaskClaimsSweep = "claims:sweep"

// PendingLister lists approved claims awaiting payment.
type PendingLister interface {
	PendingDisbursements(ctx context.Context) ([]claims.Claim, error)
}

// SweepJob handles claims:sweep tasks.
type SweepJob struct {
	Claims    PendingLister
	Scheduler claims.DisbursementScheduler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewSweepJob initialises the sweep handler.
func NewSweepJob(lister PendingLister, scheduler claims.DisbursementScheduler, logger *slog.Logger, metrics *jobmetrics.Metrics) *SweepJob {
	return &SweepJob{Claims: lister, Scheduler: scheduler, Logger: logger, Metrics: metrics}
}

// NewSweepTask constructs a claims:sweep task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskClaimsSweep, nil)
}

// Handle schedules a disbursement for every pending claim. It keeps going
// past individual scheduling failures and reports the first one.
func (j *SweepJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Claims == nil || j.Scheduler == nil {
		return errors.New("claims sweep: handler not configured")
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskClaimsSweep)
	defer func() { err = tracker.End(err) }()

	logger := loggerFor(j.Logger, TaskClaimsSweep)
	pending, err := j.Claims.PendingDisbursements(ctx)
	if err != nil {
		logger.Error("list pending disbursements", slog.Any("error", err))
		return err
	}
	var first error
	for _, c := range pending {
		if serr := j.Scheduler.ScheduleDisbursement(ctx, c.ID); serr != nil {
			logger.Warn("schedule disbursement", slog.Int64("claim_id", c.ID), slog.Any("error", serr))
			if first == nil {
				first = serr
			}
		}
	}
	logger.Info("claims swept", slog.Int("pending", len(pending)))
	return first
}
