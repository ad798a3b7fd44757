package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// Granularity selects the length of an aggregation period.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ParseGranularity accepts day, week or month in any case. Empty means day.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Day, nil
	case Day, Week, Month:
		return g, nil
	}
	return "", ErrInvalidGranularity
}

// Period is the calendar day, week or month that contains Date.
type Period struct {
	Date        time.Time
	Granularity Granularity
}

// Bounds returns the half-open interval [start, end) in loc.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	switch p.Granularity {
	case Week:
		return shared.WeekBounds(p.Date, loc)
	case Month:
		return shared.MonthBounds(p.Date, loc)
	}
	return shared.DayBounds(p.Date, loc)
}

// Costs splits total cost by source. StockPurchases is STOCK-type expenses
// in the period; it is shown for reference and not part of Total, since
// stock is costed when it is used.
type Costs struct {
	Stock                 decimal.Decimal            `json:"stock"`
	StockByReason         map[string]decimal.Decimal `json:"stock_by_reason"`
	Employee              decimal.Decimal            `json:"employee"`
	Operational           decimal.Decimal            `json:"operational"`
	OperationalByCategory []CategoryCost             `json:"operational_by_category"`
	StockPurchases        decimal.Decimal            `json:"stock_purchases"`
	Total                 decimal.Decimal            `json:"total"`
}

// CategoryCost is one operational category line.
type CategoryCost struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
}

// Profit is revenue minus all costs, with margin in percent.
type Profit struct {
	Gross  decimal.Decimal `json:"gross"`
	Margin decimal.Decimal `json:"margin"`
}

// CostReport is the result of Aggregate.
type CostReport struct {
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Granularity  Granularity     `json:"granularity"`
	Revenue      decimal.Decimal `json:"revenue"`
	Costs        Costs           `json:"costs"`
	Profit       Profit          `json:"profit"`
	Transactions int             `json:"transactions"`
	// Degraded lists the sources that failed and were counted as zero.
	Degraded []string `json:"degraded,omitempty"`
}

// DaySummary is one row of a period summary.
type DaySummary struct {
	Date         string          `json:"date"`
	Sales        decimal.Decimal `json:"sales"`
	StockCost    decimal.Decimal `json:"stock_cost"`
	EmployeeCost decimal.Decimal `json:"employee_cost"`
	Operational  decimal.Decimal `json:"operational_cost"`
	Costs        decimal.Decimal `json:"costs"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	Transactions int             `json:"transactions"`
}

// SummaryTotals are the sums of all daily rows.
type SummaryTotals struct {
	Sales        decimal.Decimal `json:"sales"`
	Costs        decimal.Decimal `json:"costs"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	Transactions int             `json:"transactions"`
}

// PeriodSummary is the result of SummarizePeriod.
type PeriodSummary struct {
	Start          string        `json:"start"`
	End            string        `json:"end"`
	Totals         SummaryTotals `json:"totals"`
	DailyBreakdown []DaySummary  `json:"daily_breakdown"`
	Degraded       []string      `json:"degraded,omitempty"`
}

// Assets of the heuristic balance sheet.
type Assets struct {
	Inventory decimal.Decimal `json:"inventory"`
	Cash      decimal.Decimal `json:"cash"`
	Total     decimal.Decimal `json:"total"`
}

// Liabilities of the heuristic balance sheet.
type Liabilities struct {
	Payables decimal.Decimal `json:"payables"`
	Total    decimal.Decimal `json:"total"`
}

// PartnerShare is one partner's part of a distribution.
type PartnerShare struct {
	PartnerID    int64           `json:"partner_id"`
	Name         string          `json:"name"`
	SharePercent decimal.Decimal `json:"share_percent"`
	Amount       decimal.Decimal `json:"amount"`
}

// Distribution splits a distributable amount across partners.
type Distribution struct {
	Basis  Basis           `json:"basis"`
	Amount decimal.Decimal `json:"amount"`
	// SharesTotal is the sum of partner percentages; anything other than
	// 100 should be flagged to the user.
	SharesTotal decimal.Decimal `json:"shares_total"`
	Shares      []PartnerShare  `json:"shares"`
}

// BalanceSheet is the result of BuildBalanceSheet.
type BalanceSheet struct {
	AsOf                    string          `json:"as_of"`
	Assets                  Assets          `json:"assets"`
	Liabilities             Liabilities     `json:"liabilities"`
	Equity                  decimal.Decimal `json:"equity"`
	NetProfitToDate         decimal.Decimal `json:"net_profit_to_date"`
	ExpensesToDate          decimal.Decimal `json:"expenses_to_date"`
	PartnershipDistribution Distribution    `json:"partnership_distribution"`
	BalanceCheck            decimal.Decimal `json:"balance_check"`
	Degraded                []string        `json:"degraded,omitempty"`
}

// Basis picks the figure that is distributed to partners.
type Basis string

const (
	BasisNetProfit Basis = "net_profit"
	BasisEquity    Basis = "equity"
)

// ParseBasis validates a distribution basis. Empty means net profit.
func ParseBasis(s string) (Basis, error) {
	switch b := Basis(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BasisNetProfit, nil
	case BasisNetProfit, BasisEquity:
		return b, nil
	}
	return "", fmt.Errorf("reporting: unknown distribution basis %q", s)
}

// MaxSummaryDays caps SummarizePeriod ranges.
const MaxSummaryDays = 366

var (
	ErrInvalidGranularity = shared.NewRuleError(shared.ErrValidation,
		"reporting: invalid granularity", "Granularity must be day, week or month.")
	ErrRangeTooLong = shared.NewRuleError(shared.ErrValidation,
		"reporting: range too long", fmt.Sprintf("A summary can cover at most %d days.", MaxSummaryDays))
)

// Partial reports whether any source failed while building r.
func (r CostReport) Partial() bool { return len(r.Degraded) > 0 }

// Partial reports whether any source failed while building s.
func (s PeriodSummary) Partial() bool { return len(s.Degraded) > 0 }

// Partial reports whether any source failed while building b.
func (b BalanceSheet) Partial() bool { return len(b.Degraded) > 0 }
