package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/expenses"
	"github.com/kitchenledger/backoffice/internal/inventory"
	"github.com/kitchenledger/backoffice/internal/observability"
	"github.com/kitchenledger/backoffice/internal/partners"
	"github.com/kitchenledger/backoffice/internal/payroll"
	"github.com/kitchenledger/backoffice/internal/platform/httpx"
	"github.com/kitchenledger/backoffice/internal/reporting"
	"github.com/kitchenledger/backoffice/internal/sales"
	"github.com/kitchenledger/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are not mounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Pool    *pgxpool.Pool
	Metrics *observability.Metrics

	CategoryHandler  *costcategory.Handler
	InventoryHandler *inventory.Handler
	ExpenseHandler   *expenses.Handler
	PayrollHandler   *payroll.Handler
	SalesHandler     *sales.Handler
	PartnerHandler   *partners.Handler
	ReportHandler    *reporting.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				httpx.Fail(w, http.StatusServiceUnavailable, "The database is unavailable.")
				return
			}
		}
		httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if params.CategoryHandler != nil {
			r.Route("/categories", params.CategoryHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.ExpenseHandler != nil {
			r.Route("/expenses", params.ExpenseHandler.MountRoutes)
		}
		if params.PayrollHandler != nil {
			r.Route("/payroll", params.PayrollHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/pos", params.SalesHandler.MountRoutes)
		}
		if params.PartnerHandler != nil {
			r.Route("/partners", params.PartnerHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Not found.")
	})
	return r
}
