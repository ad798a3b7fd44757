package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kitchenledger/backoffice/internal/jobs"
	"github.com/kitchenledger/backoffice/internal/payroll"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SalaryMaterializer records one day of salary allocations.
type SalaryMaterializer interface {
	MaterializeDailySalaries(ctx context.Context, date time.Time) (payroll.MaterializeResult, error)
}

// SalaryJob records the daily salary allocations ahead of the first report
// read of the day. The read path stays authoritative; this only moves the
// write off the request.
type SalaryJob struct {
	Materializer SalaryMaterializer
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	Location     *time.Location
	clock        func() time.Time
}

// NewSalaryJob wires the salary job.
func NewSalaryJob(m SalaryMaterializer, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *SalaryJob {
	return &SalaryJob{Materializer: m, Location: loc, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle processes TaskPayrollMaterialize tasks.
func (j *SalaryJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Materializer == nil {
		return errors.New("salary job: handler not configured")
	}
	var payload DatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	day, err := payload.Day(j.now(), j.Location)
	if err != nil {
		j.logger().Warn("salary job: bad payload", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPayrollMaterialize)
	defer func() { err = tracker.End(err) }()

	res, err := j.Materializer.MaterializeDailySalaries(ctx, day)
	if err != nil {
		j.logger().Error("materialize daily salaries", slog.String("date", payload.Date), slog.Any("error", err))
		return err
	}
	if !res.AlreadyRecorded {
		j.metrics().AddSalaryAllocations(res.EmployeeCount)
	}
	j.logger().Info("daily salaries materialized",
		slog.String("date", res.Date),
		slog.Bool("already_recorded", res.AlreadyRecorded),
		slog.Int("employees", res.EmployeeCount),
		slog.String("amount", res.TotalAmount.StringFixed(2)))
	return nil
}

func (j *SalaryJob) now() time.Time {
	if j.clock == nil {
		return time.Now()
	}
	return j.clock()
}

func (j *SalaryJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

func (j *SalaryJob) metrics() *jobmetrics.Metrics {
	if j.Metrics == nil {
		return defaultJobMetrics
	}
	return j.Metrics
}
