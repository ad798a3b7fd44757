package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/backoffice/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPayrollMaterialize records the daily salary allocation rows.
	TaskPayrollMaterialize = "payroll:materialize-daily"
	// TaskReportingWarmup precomputes the day, week and month reports.
	TaskReportingWarmup = "reporting:warmup"
)

// DatePayload names the business day a task works on. An empty Date means
// the day the task runs.
type DatePayload struct {
	Date string `json:"date,omitempty"`
}

// Day resolves the payload date in loc, falling back to now.
func (p DatePayload) Day(now time.Time, loc *time.Location) (time.Time, error) {
	if p.Date == "" {
		return shared.StartOfDay(now, loc), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(shared.DateLayout, p.Date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("jobs: invalid date %q: %w", p.Date, err)
	}
	return day, nil
}

func newDateTask(typ, date string) (*asynq.Task, error) {
	data, err := json.Marshal(DatePayload{Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, data), nil
}

// NewPayrollMaterializeTask builds a salary materialization task. An empty
// date materializes the day the task runs.
func NewPayrollMaterializeTask(date string) (*asynq.Task, error) {
	return newDateTask(TaskPayrollMaterialize, date)
}

// NewReportingWarmupTask builds a report warmup task.
func NewReportingWarmupTask(date string) (*asynq.Task, error) {
	return newDateTask(TaskReportingWarmup, date)
}
