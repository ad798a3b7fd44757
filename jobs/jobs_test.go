package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/kitchenledger/backoffice/internal/jobs"
	"github.com/kitchenledger/backoffice/internal/payroll"
	"github.com/kitchenledger/backoffice/internal/shared"
)

type recordingMaterializer struct {
	dates []time.Time
	err   error
}

func (m *recordingMaterializer) MaterializeDailySalaries(_ context.Context, date time.Time) (payroll.MaterializeResult, error) {
	m.dates = append(m.dates, date)
	if m.err != nil {
		return payroll.MaterializeResult{}, m.err
	}
	return payroll.MaterializeResult{
		Date:          date.Format(shared.DateLayout),
		TotalAmount:   decimal.RequireFromString("4500"),
		EmployeeCount: 3,
	}, nil
}

type recordingWarmer struct {
	dates []time.Time
	err   error
}

func (w *recordingWarmer) Warm(_ context.Context, date time.Time) error {
	w.dates = append(w.dates, date)
	return w.err
}

func TestSalaryJobUsesPayloadDate(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	m := &recordingMaterializer{}
	job := NewSalaryJob(m, wib, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPayrollMaterializeTask("2024-06-01")
	require.NoError(t, err)
	require.Equal(t, TaskPayrollMaterialize, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []time.Time{time.Date(2024, 6, 1, 0, 0, 0, 0, wib)}, m.dates)
}

func TestSalaryJobDefaultsToToday(t *testing.T) {
	m := &recordingMaterializer{}
	job := NewSalaryJob(m, time.UTC, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, 6, 10, 5, 0, 0, 0, time.UTC) }

	task, err := NewPayrollMaterializeTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), m.dates[0])
}

func TestSalaryJobRejectsBadPayload(t *testing.T) {
	job := NewSalaryJob(&recordingMaterializer{}, time.UTC, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskPayrollMaterialize, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	data, _ := json.Marshal(DatePayload{Date: "10/06/2024"})
	err = job.Handle(context.Background(), asynq.NewTask(TaskPayrollMaterialize, data))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSalaryJobPropagatesFailure(t *testing.T) {
	boom := errors.New("database unavailable")
	job := NewSalaryJob(&recordingMaterializer{err: boom}, time.UTC, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewPayrollMaterializeTask("2024-06-01")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestWarmupJob(t *testing.T) {
	w := &recordingWarmer{}
	job := NewWarmupJob(w, time.UTC, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewReportingWarmupTask("2024-06-02")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), w.dates[0])

	w.err = errors.New("redis down")
	require.Error(t, job.Handle(context.Background(), task))

	var unset *WarmupJob
	require.Error(t, unset.Handle(context.Background(), task))
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"data":{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0}}`, rec.Body.String())
}
