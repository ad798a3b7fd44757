package shared

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary amount half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Margin returns profit as a percentage of revenue. It is zero whenever
// revenue is not positive.
func Margin(profit, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred)
}

// PercentOf returns amount * percent / 100.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}
