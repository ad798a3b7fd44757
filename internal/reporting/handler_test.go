package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
	"github.com/kitchenledger/backoffice/internal/sales"
)

func newReportRouter(f *fixture, limit int) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, f.service(nil, Options{}), limit).MountRoutes(r)
	return r
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCostsEndpoint(t *testing.T) {
	f := newFixture()
	f.sales.amount, f.sales.count = dec("150"), 2
	rec := get(newReportRouter(f, 0), "/costs?date=2024-06-01&granularity=week")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Success bool       `json:"success"`
		Data    CostReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.Equal(t, "2024-05-27", env.Data.Start)
	require.Equal(t, Week, env.Data.Granularity)
	requireAmount(t, "150.00", env.Data.Revenue)
}

func TestCostsEndpointRejectsBadInput(t *testing.T) {
	router := newReportRouter(newFixture(), 0)

	rec := get(router, "/costs?granularity=fortnight")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, "/costs?date=01-06-2024")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
}

func TestSummaryEndpointValidatesRange(t *testing.T) {
	router := newReportRouter(newFixture(), 0)

	require.Equal(t, http.StatusBadRequest, get(router, "/summary?start=2024-06-05&end=2024-06-01").Code)
	require.Equal(t, http.StatusBadRequest, get(router, "/summary?start=2024-06-05").Code)
	require.Equal(t, http.StatusOK, get(router, "/summary?start=2024-06-01&end=2024-06-05").Code)
}

func TestSummaryShortcutsDefaultToServiceClock(t *testing.T) {
	router := newReportRouter(newFixture(), 0)

	for target, want := range map[string][2]string{
		"/summary/week":                  {"2024-06-10", "2024-06-16"},
		"/summary/month":                 {"2024-06-01", "2024-06-30"},
		"/summary/week?date=2024-06-02":  {"2024-05-27", "2024-06-02"},
		"/summary/month?date=2024-02-10": {"2024-02-01", "2024-02-29"},
	} {
		rec := get(router, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		var env struct {
			Data PeriodSummary `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.Equal(t, want[0], env.Data.Start, target)
		require.Equal(t, want[1], env.Data.End, target)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture()
	f.sales.daily = map[string]sales.DayRevenue{"2024-06-02": {Amount: dec("80"), Count: 1}}
	rec := get(newReportRouter(f, 0), "/summary/export?start=2024-06-01&end=2024-06-03")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "summary_2024-06-01_2024-06-03.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.Equal(t, summaryHeader, records[0])
	require.Equal(t, "2024-06-02", records[2][0])
	require.Equal(t, "80.00", records[2][1])
	require.Equal(t, "TOTAL", records[4][0])
	require.Equal(t, "100.00", records[4][7])
}

func TestExportXLSX(t *testing.T) {
	f := newFixture()
	f.sales.daily = map[string]sales.DayRevenue{"2024-06-01": {Amount: dec("42.5"), Count: 1}}
	rec := get(newReportRouter(f, 0), "/summary/export?start=2024-06-01&end=2024-06-02&format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = book.Close() })

	rows, err := book.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "Date", rows[0][0])
	require.Equal(t, "2024-06-01", rows[1][0])
	require.Equal(t, "42.5", rows[1][1])
	require.Equal(t, "TOTAL", rows[3][0])
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	rec := get(newReportRouter(newFixture(), 0), "/summary/export?start=2024-06-01&end=2024-06-02&format=pdf")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceSheetEndpoint(t *testing.T) {
	f := newFixture()
	f.inventory.value = dec("75")
	rec := get(newReportRouter(f, 0), "/balance-sheet?as_of=2024-06-30")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data BalanceSheet `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "2024-06-30", env.Data.AsOf)
	requireAmount(t, "75.00", env.Data.Assets.Total)
}

func TestReportRoutesAreRateLimited(t *testing.T) {
	router := newReportRouter(newFixture(), 2)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, get(router, "/costs?granularity=month").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, get(router, "/costs?granularity=month").Code)
}

func TestWriteSummaryCSVWithoutRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, PeriodSummary{Start: "2024-06-01", End: "2024-06-01"}))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
}
