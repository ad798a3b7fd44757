package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/expenses"
	"github.com/kitchenledger/backoffice/internal/payroll"
	"github.com/kitchenledger/backoffice/internal/reporting"
	"github.com/kitchenledger/backoffice/internal/sales"
)

// Policy holds the business rules an owner may tune without a deploy.
type Policy struct {
	Revenue  RevenuePolicy `toml:"revenue"`
	Expenses ExpensePolicy `toml:"expenses"`
	Payroll  PayrollPolicy `toml:"payroll"`
	Balance  BalancePolicy `toml:"balance"`
	Lists    ListPolicy    `toml:"lists"`
}

// RevenuePolicy picks which sale statuses count as revenue.
type RevenuePolicy struct {
	CountedStatuses []string `toml:"counted_statuses"`
}

// ExpensePolicy picks which expense statuses count as cost.
type ExpensePolicy struct {
	CountedStatuses []string `toml:"counted_statuses"`
}

// PayrollPolicy tunes the daily salary allocation.
type PayrollPolicy struct {
	SalaryDivisor int `toml:"salary_divisor"`
}

// BalancePolicy tunes the heuristic balance sheet.
type BalancePolicy struct {
	LiabilityRate     string `toml:"liability_rate"`
	DistributionBasis string `toml:"distribution_basis"`
}

// ListPolicy caps list endpoints.
type ListPolicy struct {
	MaxRows int `toml:"max_rows"`
}

// DefaultPolicy returns the built-in rules.
func DefaultPolicy() Policy {
	return Policy{
		Revenue:  RevenuePolicy{CountedStatuses: statusStrings(sales.DefaultCountedStatuses)},
		Expenses: ExpensePolicy{CountedStatuses: statusStrings(expenses.DefaultCountedStatuses)},
		Payroll:  PayrollPolicy{SalaryDivisor: payroll.DefaultSalaryDivisor},
		Balance: BalancePolicy{
			LiabilityRate:     reporting.DefaultLiabilityRate.String(),
			DistributionBasis: string(reporting.BasisNetProfit),
		},
		Lists: ListPolicy{MaxRows: 100},
	}
}

// LoadPolicy reads the TOML policy at path on top of the defaults. A
// missing file yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("app: read policy: %w", err)
	}
	if _, err := toml.Decode(string(data), &p); err != nil {
		return Policy{}, fmt.Errorf("app: parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	for _, s := range p.Revenue.CountedStatuses {
		if !sales.SaleStatus(s).Valid() {
			return fmt.Errorf("app: policy: unknown sale status %q", s)
		}
	}
	for _, s := range p.Expenses.CountedStatuses {
		if !expenses.Status(s).Valid() {
			return fmt.Errorf("app: policy: unknown expense status %q", s)
		}
	}
	if len(p.Revenue.CountedStatuses) == 0 || len(p.Expenses.CountedStatuses) == 0 {
		return errors.New("app: policy: counted statuses must not be empty")
	}
	if p.Payroll.SalaryDivisor <= 0 {
		return errors.New("app: policy: salary_divisor must be positive")
	}
	rate, err := p.LiabilityRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return errors.New("app: policy: liability_rate must not be negative")
	}
	if _, err := reporting.ParseBasis(p.Balance.DistributionBasis); err != nil {
		return fmt.Errorf("app: policy: %w", err)
	}
	if p.Lists.MaxRows <= 0 {
		return errors.New("app: policy: max_rows must be positive")
	}
	return nil
}

// LiabilityRate parses the configured payables rate.
func (p Policy) LiabilityRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(p.Balance.LiabilityRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("app: policy: liability_rate: %w", err)
	}
	return rate, nil
}

// Basis returns the configured distribution basis.
func (p Policy) Basis() reporting.Basis {
	b, err := reporting.ParseBasis(p.Balance.DistributionBasis)
	if err != nil {
		return reporting.BasisNetProfit
	}
	return b
}

// SaleStatuses returns the counted sale statuses.
func (p Policy) SaleStatuses() []sales.SaleStatus {
	out := make([]sales.SaleStatus, len(p.Revenue.CountedStatuses))
	for i, s := range p.Revenue.CountedStatuses {
		out[i] = sales.SaleStatus(s)
	}
	return out
}

// ExpenseStatuses returns the counted expense statuses.
func (p Policy) ExpenseStatuses() []expenses.Status {
	out := make([]expenses.Status, len(p.Expenses.CountedStatuses))
	for i, s := range p.Expenses.CountedStatuses {
		out[i] = expenses.Status(s)
	}
	return out
}

func statusStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
