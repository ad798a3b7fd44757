package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	limit   int
}

// NewHandler constructs the reporting handler. limit is the number of
// report requests allowed per actor per minute; zero disables limiting.
func NewHandler(logger *slog.Logger, service *Service, limit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, limit: limit}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limit > 0 {
			r.Use(httprate.Limit(h.limit, time.Minute, httprate.WithKeyFuncs(actorOrIP)))
		}
		r.Get("/costs", h.aggregate)
		r.Get("/summary", h.summary)
		r.Get("/summary/week", h.week)
		r.Get("/summary/month", h.month)
		r.Get("/summary/export", h.export)
		r.Get("/balance-sheet", h.balanceSheet)
	})
}

func actorOrIP(r *http.Request) (string, error) {
	if id := shared.ActorFromContext(r.Context()); id > 0 {
		return fmt.Sprintf("actor:%d", id), nil
	}
	ip, err := httprate.KeyByIP(r)
	return "ip:" + ip, err
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	g, err := ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := httpx.QueryDate(r, "date", h.service.Location())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.Aggregate(r.Context(), Period{Date: date, Granularity: g})
	if err != nil {
		h.fail(w, "aggregate", err)
		return
	}
	httpx.OK(w, http.StatusOK, report)
}

func (h *Handler) rangeParams(r *http.Request) (time.Time, time.Time, error) {
	loc := h.service.Location()
	start, err := httpx.QueryDate(r, "start", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := httpx.QueryDate(r, "end", loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, &shared.ValidationError{Fields: map[string]string{"start": "start and end are required"}}
	}
	return start, end, nil
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.SummarizePeriod(r.Context(), start, end)
	if err != nil {
		h.fail(w, "summary", err)
		return
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) week(w http.ResponseWriter, r *http.Request) {
	h.around(w, r, "week", h.service.Week)
}

func (h *Handler) month(w http.ResponseWriter, r *http.Request) {
	h.around(w, r, "month", h.service.Month)
}

func (h *Handler) around(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, time.Time) (PeriodSummary, error)) {
	date, err := httpx.QueryDate(r, "date", h.service.Location())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := fn(r.Context(), date)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.rangeParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		httpx.RespondError(w, &shared.ValidationError{Fields: map[string]string{"format": "must be csv or xlsx"}})
		return
	}
	out, err := h.service.SummarizePeriod(r.Context(), start, end)
	if err != nil {
		h.fail(w, "export", err)
		return
	}

	name := fmt.Sprintf("summary_%s_%s.%s", out.Start, out.End, format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = WriteSummaryXLSX(w, out)
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = WriteSummaryCSV(w, out)
	}
	if err != nil {
		h.logger.Error("write summary export", slog.String("format", format), slog.Any("error", err))
	}
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "as_of", h.service.Location())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.BuildBalanceSheet(r.Context(), asOf)
	if err != nil {
		h.fail(w, "balance sheet", err)
		return
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error("reporting "+op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
