package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/partners"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// BuildBalanceSheet estimates assets, liabilities and equity at the end of
// asOf. The model is a heuristic for a dashboard, not an accounting ledger:
// cash is net profit to date floored at zero and payables are a fixed share
// of expenses to date.
func (s *Service) BuildBalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	day := shared.StartOfDay(asOf, s.loc)

	var out BalanceSheet
	err := s.cache.Fetch(ctx, &out, func(ctx context.Context) (any, error) {
		return s.balance(ctx, day), nil
	}, "report", "balance", day.Format(shared.DateLayout))
	return out, err
}

func (s *Service) balance(ctx context.Context, day time.Time) BalanceSheet {
	cutoff := day.AddDate(0, 0, 1)
	var (
		t         tally
		inventory = decimal.Zero
		revenue   = decimal.Zero
		usageCost = decimal.Zero
		types     map[costcategory.ExpenseType]decimal.Decimal
		members   []partners.Partner
	)

	var eg errgroup.Group
	eg.Go(func() error {
		v, err := s.src.Inventory.InventoryValue(ctx)
		if !s.swallow(ctx, &t, SourceInventory, err) {
			inventory = v
		}
		return nil
	})
	eg.Go(func() error {
		v, _, err := s.src.Sales.Revenue(ctx, time.Time{}, cutoff)
		if !s.swallow(ctx, &t, SourceSales, err) {
			revenue = v
		}
		return nil
	})
	eg.Go(func() error {
		byReason, err := s.src.Usage.UsageCostByReason(ctx, time.Time{}, cutoff)
		if !s.swallow(ctx, &t, SourceUsage, err) {
			usageCost = sumValues(byReason)
		}
		return nil
	})
	eg.Go(func() error {
		totals, err := s.src.Expenses.TotalsByType(ctx, time.Time{}, cutoff)
		if !s.swallow(ctx, &t, SourceExpenses, err) {
			types = totals
		}
		return nil
	})
	eg.Go(func() error {
		list, err := s.src.Partners.Active(ctx)
		if !s.swallow(ctx, &t, SourcePartners, err) {
			members = list
		}
		return nil
	})
	_ = eg.Wait()

	// Stock purchases are already costed through usage, so they only count
	// toward expenses to date.
	running := decimal.Zero
	for typ, amount := range types {
		if typ != costcategory.TypeStock {
			running = running.Add(amount)
		}
	}
	netProfit := shared.Round2(revenue.Sub(usageCost).Sub(running))
	expensesToDate := shared.Round2(sumValues(types))

	cash := decimal.Max(decimal.Zero, netProfit)
	inv := shared.Round2(inventory)
	assets := inv.Add(cash)
	payables := decimal.Max(decimal.Zero, shared.Round2(expensesToDate.Mul(s.rate)))
	equity := assets.Sub(payables)

	distributable := netProfit
	if s.basis == BasisEquity {
		distributable = equity
	}
	dist := Split(distributable, members)
	dist.Basis = s.basis

	return BalanceSheet{
		AsOf:                    day.Format(shared.DateLayout),
		Assets:                  Assets{Inventory: inv, Cash: cash, Total: assets},
		Liabilities:             Liabilities{Payables: payables, Total: payables},
		Equity:                  equity,
		NetProfitToDate:         netProfit,
		ExpensesToDate:          expensesToDate,
		PartnershipDistribution: dist,
		BalanceCheck:            assets.Sub(payables.Add(equity)),
		Degraded:                t.list(),
	}
}

// Split divides amount by each partner's share percentage. Shares are not
// required to total 100; SharesTotal reports what they add up to.
func Split(amount decimal.Decimal, members []partners.Partner) Distribution {
	dist := Distribution{
		Amount:      shared.Round2(amount),
		SharesTotal: decimal.Zero,
		Shares:      make([]PartnerShare, 0, len(members)),
	}
	for _, p := range members {
		dist.SharesTotal = dist.SharesTotal.Add(p.SharePercent)
		dist.Shares = append(dist.Shares, PartnerShare{
			PartnerID:    p.ID,
			Name:         p.Name,
			SharePercent: p.SharePercent,
			Amount:       shared.Round2(shared.PercentOf(amount, p.SharePercent)),
		})
	}
	return dist
}
