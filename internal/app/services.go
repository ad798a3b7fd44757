package app

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/expenses"
	"github.com/kitchenledger/backoffice/internal/inventory"
	"github.com/kitchenledger/backoffice/internal/observability"
	"github.com/kitchenledger/backoffice/internal/partners"
	"github.com/kitchenledger/backoffice/internal/payroll"
	"github.com/kitchenledger/backoffice/internal/platform/cache"
	"github.com/kitchenledger/backoffice/internal/reporting"
	"github.com/kitchenledger/backoffice/internal/sales"
)

// ServiceDeps are the shared clients both binaries build services from.
type ServiceDeps struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Policy   Policy
	Location *time.Location
	CacheTTL time.Duration
}

// Services holds the domain services of the back office.
type Services struct {
	Location     *time.Location
	Cache        *reporting.Cache
	Categories   *costcategory.Resolver
	Inventory    *inventory.Service
	Expenses     *expenses.Service
	Employees    *payroll.Service
	Materializer *payroll.Materializer
	Sales        *sales.Service
	Partners     *partners.Service
	Reports      *reporting.Service
}

// BuildServices wires repositories and services. Every write path bumps
// the report cache version.
func BuildServices(deps ServiceDeps) (*Services, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	rate, err := deps.Policy.LiabilityRate()
	if err != nil {
		return nil, err
	}

	var lookups reporting.LookupRecorder
	var failures reporting.FailureRecorder
	if deps.Metrics != nil {
		lookups, failures = deps.Metrics, deps.Metrics
	}
	reportCache := reporting.NewCache(deps.Redis, deps.CacheTTL, logger, lookups)

	categories := costcategory.NewResolver(costcategory.NewRepository(deps.Pool))

	expenseService := expenses.NewService(expenses.NewRepository(deps.Pool), categories, logger, reportCache, expenses.Options{
		CountedStatuses: deps.Policy.ExpenseStatuses(),
		ListLimit:       deps.Policy.Lists.MaxRows,
	})
	inventoryService := inventory.NewService(inventory.NewRepository(deps.Pool), logger, expenseService, reportCache)
	salesService := sales.NewService(sales.NewRepository(deps.Pool), logger, reportCache, sales.Options{
		CountedStatuses: deps.Policy.SaleStatuses(),
		ListLimit:       deps.Policy.Lists.MaxRows,
	})
	partnerService := partners.NewService(partners.NewRepository(deps.Pool), reportCache)

	payrollRepo := payroll.NewRepository(deps.Pool)
	opts := []payroll.MaterializerOption{
		payroll.WithInvalidator(reportCache),
		payroll.WithDivisor(deps.Policy.Payroll.SalaryDivisor),
		payroll.WithLocation(loc),
	}
	if deps.Redis != nil {
		opts = append(opts, payroll.WithLocker(cache.NewLocker(deps.Redis)))
	}
	materializer := payroll.NewMaterializer(payrollRepo, categories, logger, opts...)

	reports := reporting.NewService(reporting.Sources{
		Sales:     salesService,
		Usage:     inventoryService,
		Inventory: inventoryService,
		Expenses:  expenseService,
		Partners:  partnerService,
		Salaries:  materializer,
	}, reportCache, failures, logger, reporting.Options{
		Location:      loc,
		LiabilityRate: &rate,
		Basis:         deps.Policy.Basis(),
	})

	return &Services{
		Location:     loc,
		Cache:        reportCache,
		Categories:   categories,
		Inventory:    inventoryService,
		Expenses:     expenseService,
		Employees:    payroll.NewService(payrollRepo, logger),
		Materializer: materializer,
		Sales:        salesService,
		Partners:     partnerService,
		Reports:      reports,
	}, nil
}

// Handlers builds the HTTP handlers for the API routes.
func (s *Services) Handlers(logger *slog.Logger, cfg *Config) RouterParams {
	limit := 0
	if cfg != nil {
		limit = cfg.RateLimitPerMinute
	}
	return RouterParams{
		Logger:           logger,
		Config:           cfg,
		CategoryHandler:  costcategory.NewHandler(logger, s.Categories),
		InventoryHandler: inventory.NewHandler(logger, s.Inventory, s.Location),
		ExpenseHandler:   expenses.NewHandler(logger, s.Expenses, s.Location),
		PayrollHandler:   payroll.NewHandler(logger, s.Employees, s.Materializer, s.Location),
		SalesHandler:     sales.NewHandler(logger, s.Sales, s.Location),
		PartnerHandler:   partners.NewHandler(logger, s.Partners),
		ReportHandler:    reporting.NewHandler(logger, s.Reports, limit),
	}
}
