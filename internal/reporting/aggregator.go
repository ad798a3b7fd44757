package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/expenses"
	"github.com/kitchenledger/backoffice/internal/inventory"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Aggregate computes revenue, costs and profit for the day, week or month
// containing p.Date. Source failures never surface as errors; they are
// listed in CostReport.Degraded and counted as zero.
func (s *Service) Aggregate(ctx context.Context, p Period) (CostReport, error) {
	if p.Granularity == "" {
		p.Granularity = Day
	}
	if _, err := ParseGranularity(string(p.Granularity)); err != nil {
		return CostReport{}, err
	}
	if p.Date.IsZero() {
		p.Date = s.now()
	}
	start, end := p.Bounds(s.loc)

	var pre tally
	if p.Granularity == Day && !start.After(shared.StartOfDay(s.now(), s.loc)) {
		s.materialize(ctx, &pre, start)
	}

	var report CostReport
	err := s.cache.Fetch(ctx, &report, func(ctx context.Context) (any, error) {
		return s.aggregate(ctx, start, end, p.Granularity), nil
	}, "report", "aggregate", string(p.Granularity), start.Format(shared.DateLayout))
	if err != nil {
		return CostReport{}, err
	}
	if extra := pre.list(); len(extra) > 0 {
		report.Degraded = mergeSources(report.Degraded, extra)
	}
	return report, nil
}

func (s *Service) materialize(ctx context.Context, t *tally, day time.Time) {
	if s.src.Salaries == nil {
		return
	}
	res, err := s.src.Salaries.MaterializeDailySalaries(ctx, day)
	if s.swallow(ctx, t, SourceSalaries, err) {
		return
	}
	if !res.AlreadyRecorded && res.EmployeeCount > 0 {
		s.logger.InfoContext(ctx, "daily salaries recorded on read",
			slog.String("date", res.Date),
			slog.Int("employees", res.EmployeeCount),
			slog.String("amount", res.TotalAmount.StringFixed(2)))
	}
}

func (s *Service) aggregate(ctx context.Context, start, end time.Time, g Granularity) CostReport {
	var (
		t         tally
		revenue   = decimal.Zero
		count     int
		usage     map[inventory.UsageType]decimal.Decimal
		types     map[costcategory.ExpenseType]decimal.Decimal
		breakdown []expenses.CategoryTotal
	)

	var eg errgroup.Group
	eg.Go(func() error {
		rev, n, err := s.src.Sales.Revenue(ctx, start, end)
		if !s.swallow(ctx, &t, SourceSales, err) {
			revenue, count = rev, n
		}
		return nil
	})
	eg.Go(func() error {
		byReason, err := s.src.Usage.UsageCostByReason(ctx, start, end)
		if !s.swallow(ctx, &t, SourceUsage, err) {
			usage = byReason
		}
		return nil
	})
	eg.Go(func() error {
		totals, err := s.src.Expenses.TotalsByType(ctx, start, end)
		if !s.swallow(ctx, &t, SourceExpenses, err) {
			types = totals
		}
		return nil
	})
	eg.Go(func() error {
		lines, err := s.src.Expenses.OperationalBreakdown(ctx, start, end)
		if !s.swallow(ctx, &t, SourceBreakdown, err) {
			breakdown = lines
		}
		return nil
	})
	_ = eg.Wait()

	stock := sumValues(usage)
	employee, purchases := decimal.Zero, decimal.Zero
	if types != nil {
		employee = types[costcategory.TypePayroll]
		purchases = types[costcategory.TypeStock]
	}
	opTotal := operational(types)
	if types == nil {
		// Type totals failed; the breakdown still carries operational lines.
		for _, line := range breakdown {
			opTotal = opTotal.Add(line.Amount)
		}
	}
	total := stock.Add(employee).Add(opTotal)
	gross := revenue.Sub(total)

	byReason := make(map[string]decimal.Decimal, len(usage))
	for reason, amount := range usage {
		byReason[string(reason)] = shared.Round2(amount)
	}
	lines := make([]CategoryCost, 0, len(breakdown))
	for _, line := range breakdown {
		lines = append(lines, CategoryCost{
			CategoryID: line.CategoryID,
			Name:       line.CategoryName,
			Type:       string(line.Type),
			Amount:     shared.Round2(line.Amount),
		})
	}

	return CostReport{
		Start:       start.Format(shared.DateLayout),
		End:         end.AddDate(0, 0, -1).Format(shared.DateLayout),
		Granularity: g,
		Revenue:     shared.Round2(revenue),
		Costs: Costs{
			Stock:                 shared.Round2(stock),
			StockByReason:         byReason,
			Employee:              shared.Round2(employee),
			Operational:           shared.Round2(opTotal),
			OperationalByCategory: lines,
			StockPurchases:        shared.Round2(purchases),
			Total:                 shared.Round2(total),
		},
		Profit: Profit{
			Gross:  shared.Round2(gross),
			Margin: shared.Round2(shared.Margin(gross, revenue)),
		},
		Transactions: count,
		Degraded:     t.list(),
	}
}

func mergeSources(a, b []string) []string {
	var t tally
	for _, s := range a {
		t.add(s)
	}
	for _, s := range b {
		t.add(s)
	}
	return t.list()
}

// Warm precomputes the reports that dashboards open first for date.
func (s *Service) Warm(ctx context.Context, date time.Time) error {
	for _, g := range []Granularity{Day, Week, Month} {
		if _, err := s.Aggregate(ctx, Period{Date: date, Granularity: g}); err != nil {
			return err
		}
	}
	if _, err := s.Month(ctx, date); err != nil {
		return err
	}
	_, err := s.BuildBalanceSheet(ctx, date)
	return err
}
