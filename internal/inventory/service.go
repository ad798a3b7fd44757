package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, in ItemInput) (Item, error)
	UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error)
	DeactivateItem(ctx context.Context, id int64) error
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	LowStock(ctx context.Context) ([]Item, error)
	ListUsage(ctx context.Context, filter UsageFilter) ([]StockUsage, error)
	UsageCostByReason(ctx context.Context, from, to time.Time) (map[UsageType]decimal.Decimal, error)
	DailyUsageCost(ctx context.Context, from, to time.Time, tz string) (map[string]decimal.Decimal, error)
	InventoryValue(ctx context.Context) (decimal.Decimal, error)
}

// Invalidator is notified after stock changes so cached reports refresh.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	logger      *slog.Logger
	integration IntegrationHandler
	invalidator Invalidator
	now         func() time.Time
}

// NewService builds Service. integration and invalidator may be nil.
func NewService(repo RepositoryPort, logger *slog.Logger, integration IntegrationHandler, invalidator Invalidator) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, integration: integration, invalidator: invalidator, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// RecordUsage consumes stock. The usage row, the stock decrement and the
// inventory log are written in one transaction; the cost is the item's cost
// price at the moment of use.
func (s *Service) RecordUsage(ctx context.Context, input UsageInput) (StockUsage, error) {
	if input.ActorID == 0 {
		return StockUsage{}, fmt.Errorf("inventory: %w", shared.ErrActorRequired)
	}
	if !input.Type.Valid() {
		return StockUsage{}, ErrInvalidUsageType
	}
	if err := checkQuantity(input.Quantity); err != nil {
		return StockUsage{}, err
	}
	if err := shared.Validate(input); err != nil {
		return StockUsage{}, err
	}
	usageDate := input.UsageDate
	if usageDate.IsZero() {
		usageDate = s.now()
	}

	var usage StockUsage
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return ErrItemInactive
		}
		if item.CurrentStock.LessThan(input.Quantity) {
			return &InsufficientStockError{
				ItemID:    item.ID,
				Requested: input.Quantity,
				Available: item.CurrentStock,
				Unit:      item.Unit,
			}
		}
		newStock := item.CurrentStock.Sub(input.Quantity)
		ref := uuid.New()

		usage, err = tx.InsertUsage(ctx, StockUsage{
			Reference:   ref,
			ItemID:      item.ID,
			Quantity:    input.Quantity,
			Unit:        item.Unit,
			CostPerUnit: item.CostPrice,
			TotalCost:   shared.Round2(input.Quantity.Mul(item.CostPrice)),
			Reason:      input.Type,
			MenuItemID:  input.MenuItemID,
			OrderID:     input.OrderID,
			UsageDate:   usageDate,
			Notes:       input.Notes,
			CreatedBy:   input.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.SetItemStock(ctx, item.ID, newStock, item.CostPrice); err != nil {
			return err
		}
		return tx.InsertLog(ctx, InventoryLog{
			ItemID:         item.ID,
			Type:           LogUsage,
			QuantityChange: input.Quantity.Neg(),
			PreviousStock:  item.CurrentStock,
			NewStock:       newStock,
			Reason:         usageReason(input.Type, item, input.Quantity, input.Notes),
			Reference:      ref,
			ActorID:        input.ActorID,
		})
	})
	if err != nil {
		return StockUsage{}, err
	}
	s.bump(ctx)
	return usage, nil
}

// AddStock increments stock. When a unit cost is supplied the item is
// re-priced by moving average and, if requested, a stock purchase is handed
// to the integration handler for expense posting. A failed posting does not
// fail the call: the stock is committed, so retrying would add it twice.
func (s *Service) AddStock(ctx context.Context, input StockInInput) (StockIn, error) {
	if input.ActorID == 0 {
		return StockIn{}, fmt.Errorf("inventory: %w", shared.ErrActorRequired)
	}
	if err := checkQuantity(input.Quantity); err != nil {
		return StockIn{}, err
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return StockIn{}, ErrInvalidUnitCost
	}
	if err := shared.Validate(input); err != nil {
		return StockIn{}, err
	}

	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return ErrItemInactive
		}
		newStock := item.CurrentStock.Add(input.Quantity)
		cost := item.CostPrice
		if input.UnitCost != nil {
			cost = movingAverage(item.CurrentStock, item.CostPrice, input.Quantity, *input.UnitCost)
		}
		if err := tx.SetItemStock(ctx, item.ID, newStock, cost); err != nil {
			return err
		}
		reason := fmt.Sprintf("Stock input: %s %s of %s", input.Quantity, item.Unit, item.Name)
		if note := strings.TrimSpace(input.Notes); note != "" {
			reason += " (" + note + ")"
		}
		if err := tx.InsertLog(ctx, InventoryLog{
			ItemID:         item.ID,
			Type:           LogStockIn,
			QuantityChange: input.Quantity,
			PreviousStock:  item.CurrentStock,
			NewStock:       newStock,
			Reason:         reason,
			Reference:      uuid.New(),
			ActorID:        input.ActorID,
		}); err != nil {
			return err
		}
		item.CurrentStock = newStock
		item.CostPrice = cost
		updated = item
		return nil
	})
	if err != nil {
		return StockIn{}, err
	}
	out := StockIn{Item: updated}

	if input.RecordExpense && input.UnitCost != nil && s.integration != nil {
		evt := StockPurchasedEvent{
			ItemID:      updated.ID,
			ItemName:    updated.Name,
			Unit:        updated.Unit,
			Quantity:    input.Quantity,
			UnitCost:    *input.UnitCost,
			ActorID:     input.ActorID,
			PurchasedAt: s.now(),
		}
		if err := s.integration.HandleStockPurchased(ctx, evt); err != nil {
			s.logger.Error("post stock purchase expense", slog.Int64("item_id", updated.ID), slog.Any("error", err))
			out.Warning = "Stock was added but the purchase expense was not recorded: " + shared.UserMessage(err)
		} else {
			out.ExpensePosted = true
		}
	}
	s.bump(ctx)
	return out, nil
}

// CreateItem registers a new inventory item.
func (s *Service) CreateItem(ctx context.Context, input ItemInput) (Item, error) {
	if err := validateItem(input); err != nil {
		return Item{}, err
	}
	return s.repo.CreateItem(ctx, input)
}

// UpdateItem edits descriptive fields of an item.
func (s *Service) UpdateItem(ctx context.Context, id int64, input ItemInput) (Item, error) {
	if err := validateItem(input); err != nil {
		return Item{}, err
	}
	return s.repo.UpdateItem(ctx, id, input)
}

// DeactivateItem soft-deletes an item.
func (s *Service) DeactivateItem(ctx context.Context, id int64) error {
	if err := s.repo.DeactivateItem(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists items.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

// LowStock lists items that need reordering.
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.repo.LowStock(ctx)
}

// ListUsage lists stock usage records.
func (s *Service) ListUsage(ctx context.Context, filter UsageFilter) ([]StockUsage, error) {
	if filter.Reason != "" && !filter.Reason.Valid() {
		return nil, ErrInvalidUsageType
	}
	return s.repo.ListUsage(ctx, filter)
}

// UsageCostByReason sums usage cost per reason within [from, to).
func (s *Service) UsageCostByReason(ctx context.Context, from, to time.Time) (map[UsageType]decimal.Decimal, error) {
	return s.repo.UsageCostByReason(ctx, from, to)
}

// DailyUsageCost sums usage cost per day within [from, to).
func (s *Service) DailyUsageCost(ctx context.Context, from, to time.Time, loc *time.Location) (map[string]decimal.Decimal, error) {
	return s.repo.DailyUsageCost(ctx, from, to, zoneName(loc))
}

// InventoryValue returns the value of stock on hand.
func (s *Service) InventoryValue(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.InventoryValue(ctx)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

func validateItem(input ItemInput) error {
	if input.CostPrice.IsNegative() {
		return ErrInvalidUnitCost
	}
	if input.InitialStock.IsNegative() || input.ReorderLevel.IsNegative() {
		return ErrInvalidQuantity
	}
	return shared.Validate(input)
}

// quantityScale matches the three decimals stock quantities are stored with.
const quantityScale = 3

func checkQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return ErrInvalidQuantity
	}
	if !q.Equal(q.Truncate(quantityScale)) {
		return ErrQuantityPrecision
	}
	return nil
}

func movingAverage(qty, cost, addQty, addCost decimal.Decimal) decimal.Decimal {
	total := qty.Add(addQty)
	if !total.IsPositive() {
		return shared.Round2(addCost)
	}
	return shared.Round2(qty.Mul(cost).Add(addQty.Mul(addCost)).Div(total))
}

func usageReason(t UsageType, item Item, qty decimal.Decimal, notes string) string {
	var label string
	switch t {
	case UsageRecipe:
		label = "Recipe usage"
	case UsageWastage:
		label = "Wastage"
	default:
		label = "Other usage"
	}
	reason := fmt.Sprintf("%s: %s %s of %s", label, qty, item.Unit, item.Name)
	if note := strings.TrimSpace(notes); note != "" {
		reason += " (" + note + ")"
	}
	return reason
}

func zoneName(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	return loc.String()
}

// IsInsufficientStock reports whether err is a stock shortage.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}
