package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/sales"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// SummarizePeriod returns one row per calendar day in [start, end] plus
// totals. Days without activity get zero rows.
func (s *Service) SummarizePeriod(ctx context.Context, start, end time.Time) (PeriodSummary, error) {
	first := shared.StartOfDay(start, s.loc)
	last := shared.StartOfDay(end, s.loc)
	if last.Before(first) {
		return PeriodSummary{}, shared.ErrInvalidRange
	}
	if shared.DaysBetween(first, last)+1 > MaxSummaryDays {
		return PeriodSummary{}, ErrRangeTooLong
	}

	var out PeriodSummary
	err := s.cache.Fetch(ctx, &out, func(ctx context.Context) (any, error) {
		return s.summarize(ctx, first, last), nil
	}, "report", "summary", first.Format(shared.DateLayout), last.Format(shared.DateLayout))
	return out, err
}

// Week summarizes the Monday-based week containing date, or the current
// week when date is zero.
func (s *Service) Week(ctx context.Context, date time.Time) (PeriodSummary, error) {
	if date.IsZero() {
		date = s.now()
	}
	start, end := shared.WeekBounds(date, s.loc)
	return s.SummarizePeriod(ctx, start, end.AddDate(0, 0, -1))
}

// Month summarizes the calendar month containing date, or the current
// month when date is zero.
func (s *Service) Month(ctx context.Context, date time.Time) (PeriodSummary, error) {
	if date.IsZero() {
		date = s.now()
	}
	start, end := shared.MonthBounds(date, s.loc)
	return s.SummarizePeriod(ctx, start, end.AddDate(0, 0, -1))
}

func (s *Service) summarize(ctx context.Context, first, last time.Time) PeriodSummary {
	until := last.AddDate(0, 0, 1)

	var (
		t       tally
		revenue map[string]sales.DayRevenue
		usage   map[string]decimal.Decimal
		types   map[string]map[costcategory.ExpenseType]decimal.Decimal
	)
	var eg errgroup.Group
	eg.Go(func() error {
		days, err := s.src.Sales.DailyRevenue(ctx, first, until, s.loc)
		if !s.swallow(ctx, &t, SourceSales, err) {
			revenue = days
		}
		return nil
	})
	eg.Go(func() error {
		days, err := s.src.Usage.DailyUsageCost(ctx, first, until, s.loc)
		if !s.swallow(ctx, &t, SourceUsage, err) {
			usage = days
		}
		return nil
	})
	eg.Go(func() error {
		days, err := s.src.Expenses.DailyTotalsByType(ctx, first, until)
		if !s.swallow(ctx, &t, SourceExpenses, err) {
			types = days
		}
		return nil
	})
	_ = eg.Wait()

	series := shared.DaySeries(first, last, s.loc)
	rows := make([]DaySummary, 0, len(series))
	var (
		totalSales = decimal.Zero
		totalCosts = decimal.Zero
		txCount    int
	)
	for _, day := range series {
		key := day.Format(shared.DateLayout)
		rev := revenue[key]
		stock := usage[key]
		employee := types[key][costcategory.TypePayroll]
		op := operational(types[key])
		costs := stock.Add(employee).Add(op)
		profit := rev.Amount.Sub(costs)

		rows = append(rows, DaySummary{
			Date:         key,
			Sales:        shared.Round2(rev.Amount),
			StockCost:    shared.Round2(stock),
			EmployeeCost: shared.Round2(employee),
			Operational:  shared.Round2(op),
			Costs:        shared.Round2(costs),
			Profit:       shared.Round2(profit),
			ProfitMargin: shared.Round2(shared.Margin(profit, rev.Amount)),
			Transactions: rev.Count,
		})
		totalSales = totalSales.Add(rev.Amount)
		totalCosts = totalCosts.Add(costs)
		txCount += rev.Count
	}

	profit := totalSales.Sub(totalCosts)
	return PeriodSummary{
		Start: first.Format(shared.DateLayout),
		End:   last.Format(shared.DateLayout),
		Totals: SummaryTotals{
			Sales:        shared.Round2(totalSales),
			Costs:        shared.Round2(totalCosts),
			Profit:       shared.Round2(profit),
			ProfitMargin: shared.Round2(shared.Margin(profit, totalSales)),
			Transactions: txCount,
		},
		DailyBreakdown: rows,
		Degraded:       t.list(),
	}
}
