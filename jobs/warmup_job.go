package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kitchenledger/backoffice/internal/jobs"
)

// ReportWarmer precomputes cached reports for a day.
type ReportWarmer interface {
	Warm(ctx context.Context, date time.Time) error
}

// WarmupJob fills the report cache so dashboards open warm.
type WarmupJob struct {
	Reports  ReportWarmer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewWarmupJob wires the warmup job.
func NewWarmupJob(reports ReportWarmer, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Reports: reports, Location: loc, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle processes TaskReportingWarmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("reporting warmup: handler not configured")
	}
	var payload DatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	now := time.Now
	if j.clock != nil {
		now = j.clock
	}
	day, err := payload.Day(now(), j.Location)
	if err != nil {
		return asynq.SkipRetry
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskReportingWarmup)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := j.Reports.Warm(ctx, day); err != nil {
		logger.Error("warm reports", slog.Time("date", day), slog.Any("error", err))
		return err
	}
	logger.Info("reports warmed", slog.Time("date", day))
	return nil
}
