package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/expenses"
	"github.com/kitchenledger/backoffice/internal/inventory"
	"github.com/kitchenledger/backoffice/internal/partners"
	"github.com/kitchenledger/backoffice/internal/payroll"
	"github.com/kitchenledger/backoffice/internal/sales"
)

// SalesSource provides revenue figures.
type SalesSource interface {
	Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error)
	DailyRevenue(ctx context.Context, from, to time.Time, loc *time.Location) (map[string]sales.DayRevenue, error)
}

// UsageSource provides stock consumption cost.
type UsageSource interface {
	UsageCostByReason(ctx context.Context, from, to time.Time) (map[inventory.UsageType]decimal.Decimal, error)
	DailyUsageCost(ctx context.Context, from, to time.Time, loc *time.Location) (map[string]decimal.Decimal, error)
}

// InventoryValuer values stock on hand.
type InventoryValuer interface {
	InventoryValue(ctx context.Context) (decimal.Decimal, error)
}

// ExpenseSource provides expense totals restricted to counted statuses.
type ExpenseSource interface {
	TotalsByType(ctx context.Context, from, to time.Time) (map[costcategory.ExpenseType]decimal.Decimal, error)
	OperationalBreakdown(ctx context.Context, from, to time.Time) ([]expenses.CategoryTotal, error)
	DailyTotalsByType(ctx context.Context, from, to time.Time) (map[string]map[costcategory.ExpenseType]decimal.Decimal, error)
}

// PartnerSource lists the partners taking part in a split.
type PartnerSource interface {
	Active(ctx context.Context) ([]partners.Partner, error)
}

// SalaryMaterializer records daily salary allocations on demand.
type SalaryMaterializer interface {
	MaterializeDailySalaries(ctx context.Context, date time.Time) (payroll.MaterializeResult, error)
}

// FailureRecorder counts swallowed sub-query failures.
type FailureRecorder interface {
	SubqueryFailed(source string)
}

// Sources bundles the read models the reports are built from.
type Sources struct {
	Sales     SalesSource
	Usage     UsageSource
	Inventory InventoryValuer
	Expenses  ExpenseSource
	Partners  PartnerSource
	Salaries  SalaryMaterializer
}
