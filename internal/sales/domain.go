package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// OrderStatus tracks a customer order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "OPEN"
	OrderClosed    OrderStatus = "CLOSED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// SaleStatus tracks a revenue event.
type SaleStatus string

const (
	SaleCompleted SaleStatus = "COMPLETED"
	SaleRefunded  SaleStatus = "REFUNDED"
	SaleCancelled SaleStatus = "CANCELLED"
)

// Valid reports whether s is a known sale status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleCompleted, SaleRefunded, SaleCancelled:
		return true
	}
	return false
}

// DefaultCountedStatuses are the sale statuses that count as revenue unless
// the business policy says otherwise.
var DefaultCountedStatuses = []SaleStatus{SaleCompleted}

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentEWallet  PaymentMethod = "EWALLET"
)

// Order is a customer order with its lines.
type Order struct {
	ID           int64           `json:"id"`
	OrderNumber  string          `json:"order_number"`
	TableNumber  string          `json:"table_number,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Status       OrderStatus     `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	Discount     decimal.Decimal `json:"discount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Notes        string          `json:"notes,omitempty"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Items        []OrderItem     `json:"items"`
}

// OrderItem is one order line.
type OrderItem struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	MenuItemID *int64          `json:"menu_item_id,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Notes      string          `json:"notes,omitempty"`
}

// Sale is a settled order.
type Sale struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Reference     uuid.UUID       `json:"reference"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Discount      decimal.Decimal `json:"discount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        SaleStatus      `json:"status"`
	SaleDate      time.Time       `json:"sale_date"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderInput describes a new order.
type OrderInput struct {
	TableNumber  string `validate:"max=20"`
	CustomerName string `validate:"max=200"`
	TaxPercent   decimal.Decimal
	Discount     decimal.Decimal
	Notes        string           `validate:"max=500"`
	Items        []OrderItemInput `validate:"required,min=1,dive"`
	ActorID      int64
}

// OrderItemInput is one requested line.
type OrderItemInput struct {
	MenuItemID *int64 `validate:"omitempty,gt=0"`
	Name       string `validate:"required,max=200"`
	Quantity   int    `validate:"required,gt=0"`
	UnitPrice  decimal.Decimal
	Notes      string `validate:"max=200"`
}

// CompleteInput settles an order.
type CompleteInput struct {
	OrderID       int64         `validate:"required,gt=0"`
	PaymentMethod PaymentMethod `validate:"required,oneof=CASH CARD TRANSFER EWALLET"`
	SaleDate      time.Time
	ActorID       int64
}

// SaleFilter narrows ListSales.
type SaleFilter struct {
	Status SaleStatus
	From   time.Time
	To     time.Time
	Limit  int
}

// DayRevenue is revenue for one calendar day.
type DayRevenue struct {
	Amount decimal.Decimal
	Count  int
}

// DeletionPolicy for orders: hard delete while no sale references them.
const DeletionPolicy = shared.Deletable

var (
	ErrOrderNotFound = shared.NewRuleError(shared.ErrNotFound,
		"sales: order not found", "Order not found.")
	ErrSaleNotFound = shared.NewRuleError(shared.ErrNotFound,
		"sales: sale not found", "Sale not found.")
	ErrOrderNotOpen = shared.NewRuleError(shared.ErrConflict,
		"sales: order is not open", "Only open orders can be settled or cancelled.")
	ErrSaleNotCompleted = shared.NewRuleError(shared.ErrConflict,
		"sales: sale is not completed", "Only completed sales can be refunded or cancelled.")
	ErrOrderHasSale = shared.NewRuleError(shared.ErrConflict,
		"sales: order has a sale", "Orders with a recorded sale cannot be deleted.")
	ErrInvalidPrice = shared.NewRuleError(shared.ErrValidation,
		"sales: price must be >= 0", "Prices and discounts must not be negative.")
	ErrDiscountTooLarge = shared.NewRuleError(shared.ErrValidation,
		"sales: discount exceeds order total", "Discount cannot exceed the order total.")
	ErrInvalidStatus = shared.NewRuleError(shared.ErrValidation,
		"sales: invalid status", "Status must be COMPLETED, REFUNDED or CANCELLED.")
)
