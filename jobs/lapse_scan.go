package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/healthpool/riskpool/internal/jobs"
)

// ActivityCounter counts participants by billing status.
type ActivityCounter interface {
	ActivityCounts(ctx context.Context) (active, lapsed int, err error)
}

// LapseScanJob handles membership:lapse_scan tasks.
type LapseScanJob struct {
	Membership ActivityCounter
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewLapseScanJob initialises the lapse scan handler.
func NewLapseScanJob(counter ActivityCounter, logger *slog.Logger, metrics *jobmetrics.Metrics) *LapseScanJob {
	return &LapseScanJob{Membership: counter, Logger: logger, Metrics: metrics}
}

// Handle refreshes the participant gauges.
func (j *LapseScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Membership == nil {
		return errors.New("lapse scan: handler not configured")
	}
	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskMembershipLapseScan)
	defer func() { err = tracker.End(err) }()

	active, lapsed, err := j.Membership.ActivityCounts(ctx)
	if err != nil {
		loggerFor(j.Logger, TaskMembershipLapseScan).Error("count participants", slog.Any("error", err))
		return err
	}
	metrics.SetParticipants(active, lapsed)
	loggerFor(j.Logger, TaskMembershipLapseScan).Info("participants scanned",
		slog.Int("active", active),
		slog.Int("lapsed", lapsed),
	)
	return nil
}
