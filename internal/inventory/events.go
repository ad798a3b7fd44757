package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StockPurchasedEvent describes a priced stock input ready for expense posting.
type StockPurchasedEvent struct {
	ItemID      int64
	ItemName    string
	Unit        string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ActorID     int64
	PurchasedAt time.Time
}

// Amount is the purchase value.
func (e StockPurchasedEvent) Amount() decimal.Decimal {
	return e.Quantity.Mul(e.UnitCost)
}

// IntegrationHandler receives inventory events for expense posting.
type IntegrationHandler interface {
	HandleStockPurchased(ctx context.Context, evt StockPurchasedEvent) error
}
