// Package jobs runs the riskpool background work on asynq.
package jobs

import (
	"encoding/json"
	"strconv"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/healthpool/riskpool/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskClaimsDisburse pays out one approved claim.
	TaskClaimsDisburse = "claims:disburse"
	// TaskPoolIntegrity checks the pool accounting identity.
	TaskPoolIntegrity = "pool:integrity"
	// TaskMembershipLapseScan counts active and lapsed participants.
	TaskMembershipLapseScan = "membership:lapse_scan"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DisbursePayload identifies the claim to pay.
type DisbursePayload struct {
	ClaimID int64 `json:"claim_id"`
}

// NewDisburseTask constructs a claims:disburse task. The task id is derived
// from the claim so a claim is queued at most once.
func NewDisburseTask(claimID int64) (*asynq.Task, []asynq.Option, error) {
	data, err := json.Marshal(DisbursePayload{ClaimID: claimID})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(10),
		asynq.TaskID(disburseTaskID(claimID)),
	}
	return asynq.NewTask(TaskClaimsDisburse, data), opts, nil
}

// NewPoolIntegrityTask constructs a pool:integrity task.
func NewPoolIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskPoolIntegrity, nil)
}

// NewLapseScanTask constructs a membership:lapse_scan task.
func NewLapseScanTask() *asynq.Task {
	return asynq.NewTask(TaskMembershipLapseScan, nil)
}

// Task builds the task registered under name with its default payload.
func Task(name string) (*asynq.Task, bool) {
	switch name {
	case TaskPoolIntegrity:
		return NewPoolIntegrityTask(), true
	case TaskMembershipLapseScan:
		return NewLapseScanTask(), true
	case TaskClaimsSweep:
		return NewSweepTask(), true
	default:
		return nil, false
	}
}

func disburseTaskID(claimID int64) string {
	return TaskClaimsDisburse + ":" + strconv.FormatInt(claimID, 10)
}
