package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// UsageType enumerates why stock was consumed.
type UsageType string

const (
	// UsageRecipe is consumption by a prepared menu item.
	UsageRecipe UsageType = "RECIPE"
	// UsageWastage is spoiled or discarded stock.
	UsageWastage UsageType = "WASTAGE"
	// UsageOther covers staff meals, tastings and the like.
	UsageOther UsageType = "OTHER"
)

// Valid reports whether t is a supported usage type.
func (t UsageType) Valid() bool {
	switch t {
	case UsageRecipe, UsageWastage, UsageOther:
		return true
	}
	return false
}

// LogType enumerates inventory log entries.
type LogType string

const (
	// LogUsage records a decrement by RecordUsage.
	LogUsage LogType = "USAGE"
	// LogStockIn records a stock input.
	LogStockIn LogType = "STOCK_IN"
)

// Item is an inventory unit. Items are never deleted, only deactivated.
type Item struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	SupplierID   *int64          `json:"supplier_id,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NeedsReorder reports whether stock fell to the reorder level.
func (i Item) NeedsReorder() bool {
	return i.IsActive && i.CurrentStock.LessThanOrEqual(i.ReorderLevel)
}

// StockUsage is one immutable consumption event.
type StockUsage struct {
	ID          int64           `json:"id"`
	Reference   uuid.UUID       `json:"reference"`
	ItemID      int64           `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Reason      UsageType       `json:"reason"`
	MenuItemID  *int64          `json:"menu_item_id,omitempty"`
	OrderID     *int64          `json:"order_id,omitempty"`
	UsageDate   time.Time       `json:"usage_date"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InventoryLog is the audit trail entry paired with every stock change.
type InventoryLog struct {
	ID             int64
	ItemID         int64
	Type           LogType
	QuantityChange decimal.Decimal
	PreviousStock  decimal.Decimal
	NewStock       decimal.Decimal
	Reason         string
	Reference      uuid.UUID
	ActorID        int64
	CreatedAt      time.Time
}

// UsageInput describes a request to consume stock.
type UsageInput struct {
	ItemID     int64 `validate:"required,gt=0"`
	Quantity   decimal.Decimal
	Type       UsageType `validate:"required,oneof=RECIPE WASTAGE OTHER"`
	MenuItemID *int64    `validate:"omitempty,gt=0"`
	OrderID    *int64    `validate:"omitempty,gt=0"`
	UsageDate  time.Time
	Notes      string `validate:"max=500"`
	ActorID    int64
}

// StockInInput describes a stock input (delivery, count correction upward).
type StockInInput struct {
	ItemID   int64 `validate:"required,gt=0"`
	Quantity decimal.Decimal
	// UnitCost, when set, re-prices the item by moving average.
	UnitCost      *decimal.Decimal
	Notes         string `validate:"max=500"`
	RecordExpense bool
	ActorID       int64
}

// StockIn is the result of a stock input. The stock movement is committed
// even when the purchase expense could not be posted; Warning says so.
type StockIn struct {
	Item
	ExpensePosted bool   `json:"expense_posted"`
	Warning       string `json:"warning,omitempty"`
}

// ItemInput carries fields for creating or updating an item.
type ItemInput struct {
	SKU          string `validate:"required,max=64"`
	Name         string `validate:"required,max=200"`
	Unit         string `validate:"required,max=20"`
	CostPrice    decimal.Decimal
	ReorderLevel decimal.Decimal
	InitialStock decimal.Decimal
	CategoryID   *int64 `validate:"omitempty,gt=0"`
	SupplierID   *int64 `validate:"omitempty,gt=0"`
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Search          string
	CategoryID      int64
	IncludeInactive bool
	Limit           int
}

// UsageFilter narrows ListUsage.
type UsageFilter struct {
	ItemID  int64
	Reason  UsageType
	OrderID int64
	From    time.Time
	To      time.Time
	Limit   int
}

// DeletionPolicy for items: deactivate only.
const DeletionPolicy = shared.SoftDeletable

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = shared.NewRuleError(shared.ErrValidation,
		"inventory: quantity must be greater than zero", "Quantity must be greater than zero.")
	// ErrQuantityPrecision indicates more decimals than stock quantities keep.
	ErrQuantityPrecision = shared.NewRuleError(shared.ErrValidation,
		"inventory: quantity has more than 3 decimal places", "Quantity can have at most 3 decimal places.")
	// ErrInvalidUnitCost indicates a negative cost.
	ErrInvalidUnitCost = shared.NewRuleError(shared.ErrValidation,
		"inventory: unit cost must be >= 0", "Cost must not be negative.")
	// ErrInvalidUsageType indicates an unknown usage type.
	ErrInvalidUsageType = shared.NewRuleError(shared.ErrValidation,
		"inventory: invalid usage type", "Usage type must be RECIPE, WASTAGE or OTHER.")
	// ErrItemNotFound indicates a missing item.
	ErrItemNotFound = shared.NewRuleError(shared.ErrNotFound,
		"inventory: item not found", "Item not found.")
	// ErrItemInactive indicates the item has been deactivated.
	ErrItemInactive = shared.NewRuleError(shared.ErrConflict,
		"inventory: item is inactive", "This item has been deactivated.")
	// ErrDuplicateSKU indicates the SKU is already in use.
	ErrDuplicateSKU = shared.NewRuleError(shared.ErrConflict,
		"inventory: sku already exists", "An item with this SKU already exists.")
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// InsufficientStockError reports the stock that was available.
type InsufficientStockError struct {
	ItemID    int64
	Requested decimal.Decimal
	Available decimal.Decimal
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for item %d: requested %s, available %s %s",
		e.ItemID, e.Requested, e.Available, e.Unit)
}

// Is matches ErrInsufficientStock and the conflict classification.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == shared.ErrConflict
}

// UserMessage is shown to the user verbatim.
func (e *InsufficientStockError) UserMessage() string {
	return fmt.Sprintf("Insufficient stock. Available: %s %s", e.Available, e.Unit)
}
