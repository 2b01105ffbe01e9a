package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpool/riskpool/jobs"
)

type stubTriggerer struct{ names []string }

func (s *stubTriggerer) Trigger(_ context.Context, name string) (*asynq.TaskInfo, error) {
	if _, ok := jobs.Task(name); !ok {
		return nil, errors.New("unsupported")
	}
	s.names = append(s.names, name)
	return &asynq.TaskInfo{ID: "t-1", Type: name}, nil
}

type stubInspector struct {
	info  *asynq.QueueInfo
	retry []*asynq.TaskInfo
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, nil }

func (s stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func (s stubInspector) ListRetryTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return s.retry, nil
}

func TestJobsCLITrigger(t *testing.T) {
	trig := &stubTriggerer{}
	c := NewJobsCLIWith(trig, nil)
	info, err := c.Trigger(context.Background(), jobs.TaskPoolIntegrity)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskPoolIntegrity, info.Type)

	_, err = c.Trigger(context.Background(), "nope")
	assert.Error(t, err)
	assert.Equal(t, []string{jobs.TaskPoolIntegrity}, trig.names)
}

func TestJobsCLIInspect(t *testing.T) {
	c := NewJobsCLIWith(nil, stubInspector{
		info:  &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1},
		retry: []*asynq.TaskInfo{{ID: "abc", Type: jobs.TaskClaimsDisburse, Retried: 2, LastErr: "pool: payout exceeds current balance"}},
	})
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 1, stats.Retry)

	var out bytes.Buffer
	require.NoError(t, c.PrintInspection(context.Background(), &out, 0))
	assert.Contains(t, out.String(), "default")
	assert.Contains(t, out.String(), "retry:")
	assert.Contains(t, out.String(), jobs.TaskClaimsDisburse)
	assert.NotContains(t, out.String(), "scheduled:")
}

func TestJobsCLIUnconfigured(t *testing.T) {
	c := NewJobsCLIWith(nil, nil)
	_, err := c.Trigger(context.Background(), jobs.TaskPoolIntegrity)
	assert.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)
}
