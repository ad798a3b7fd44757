// Package reporting turns sales, stock usage and expenses into cost and
// profit reports. Reads are best effort: a failing source is logged,
// counted and treated as zero instead of failing the whole report.
package reporting

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
)

// Source names used in logs, metrics and CostReport.Degraded.
const (
	SourceSales     = "sales"
	SourceUsage     = "stock_usage"
	SourceExpenses  = "expenses"
	SourceBreakdown = "operational_breakdown"
	SourceInventory = "inventory"
	SourcePartners  = "partners"
	SourceSalaries  = "salaries"
)

// DefaultLiabilityRate is the share of expenses treated as outstanding payables.
var DefaultLiabilityRate = decimal.RequireFromString("0.10")

// Options tune report computation. A nil LiabilityRate means
// DefaultLiabilityRate; zero is a valid rate.
type Options struct {
	Location      *time.Location
	LiabilityRate *decimal.Decimal
	Basis         Basis
}

// Service builds cost reports, period summaries and balance sheets.
type Service struct {
	src      Sources
	cache    *Cache
	failures FailureRecorder
	logger   *slog.Logger
	loc      *time.Location
	rate     decimal.Decimal
	basis    Basis
	now      func() time.Time
}

// NewService wires the reporting service. cache and failures may be nil.
func NewService(src Sources, cache *Cache, failures FailureRecorder, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	rate := DefaultLiabilityRate
	if opts.LiabilityRate != nil {
		rate = *opts.LiabilityRate
	}
	if opts.Basis == "" {
		opts.Basis = BasisNetProfit
	}
	return &Service{
		src:      src,
		cache:    cache,
		failures: failures,
		logger:   logger,
		loc:      opts.Location,
		rate:     rate,
		basis:    opts.Basis,
		now:      time.Now,
	}
}

// WithNow overrides the clock, mainly for tests.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Location returns the restaurant time zone reports are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// tally collects the sources that failed during one report build.
type tally struct {
	mu       sync.Mutex
	degraded []string
}

func (t *tally) add(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.degraded {
		if d == source {
			return
		}
	}
	t.degraded = append(t.degraded, source)
}

func (t *tally) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.degraded) == 0 {
		return nil
	}
	out := append([]string(nil), t.degraded...)
	sort.Strings(out)
	return out
}

// swallow reports whether err was non-nil. Failures are logged and counted
// so the caller can substitute a zero value.
func (s *Service) swallow(ctx context.Context, t *tally, source string, err error) bool {
	if err == nil {
		return false
	}
	s.logger.WarnContext(ctx, "report source failed, counting as zero",
		slog.String("source", source), slog.Any("error", err))
	if s.failures != nil {
		s.failures.SubqueryFailed(source)
	}
	t.add(source)
	return true
}

// operational sums every expense type that is neither payroll nor stock.
func operational(totals map[costcategory.ExpenseType]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for typ, amount := range totals {
		if typ == costcategory.TypePayroll || typ == costcategory.TypeStock {
			continue
		}
		sum = sum.Add(amount)
	}
	return sum
}

func sumValues[K comparable](m map[K]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range m {
		sum = sum.Add(v)
	}
	return sum
}
