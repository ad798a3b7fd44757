package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/backoffice/jobs"
)

// ErrUnsupportedJob is returned for job names the CLI cannot enqueue.
var ErrUnsupportedJob = errors.New("jobs cli: unsupported job")

// JobsCLI wraps manual helpers for the background queue.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the helpers to the Redis instance at redisAddr.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opt)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opt)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. An empty date lets the worker
// pick its current day.
func (c *JobsCLI) Trigger(ctx context.Context, name, date string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskPayrollMaterialize:
		return c.client.EnqueueMaterialize(ctx, date)
	case jobs.TaskReportingWarmup:
		return c.client.EnqueueWarmup(ctx, date)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedJob, name)
	}
}

// InspectQueue reports the default queue counters.
func (c *JobsCLI) InspectQueue(ctx context.Context) (jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return jobs.QueueStats{}, err
	}
	stats := jobs.QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// Run executes "trigger <job> [date]" or "stats" and returns the line to
// print.
func (c *JobsCLI) Run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("jobs cli: usage: jobs trigger <job> [date] | jobs stats")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return "", errors.New("jobs cli: trigger needs a job name")
		}
		date := ""
		if len(args) > 2 {
			date = args[2]
		}
		info, err := c.Trigger(ctx, args[1], date)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("enqueued %s id=%s queue=%s", info.Type, info.ID, info.Queue), nil
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("queue=%s pending=%d active=%d scheduled=%d retry=%d",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry), nil
	default:
		return "", fmt.Errorf("jobs cli: unknown command %s", args[0])
	}
}
