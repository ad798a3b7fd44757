package sales

import (
	"context"
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
	GetOrder(ctx context.Context, id int64) (Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, f SaleFilter) ([]Sale, error)
	Revenue(ctx context.Context, from, to time.Time, statuses []string) (decimal.Decimal, int, error)
	DailyRevenue(ctx context.Context, from, to time.Time, tz string, statuses []string) (map[string]DayRevenue, error)
}

// Invalidator is notified after revenue changes so cached reports refresh.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Options configures Service.
type Options struct {
	CountedStatuses []SaleStatus
	ListLimit       int
}

// Service manages orders and sales.
type Service struct {
	repo        RepositoryPort
	logger      *slog.Logger
	invalidator Invalidator
	counted     []string
	listLimit   int
	now         func() time.Time
}

// NewService builds Service. invalidator may be nil.
func NewService(repo RepositoryPort, logger *slog.Logger, invalidator Invalidator, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	statuses := opts.CountedStatuses
	if len(statuses) == 0 {
		statuses = DefaultCountedStatuses
	}
	counted := make([]string, 0, len(statuses))
	for _, st := range statuses {
		counted = append(counted, string(st))
	}
	return &Service{
		repo:        repo,
		logger:      logger,
		invalidator: invalidator,
		counted:     counted,
		listLimit:   shared.ClampLimit(opts.ListLimit, shared.DefaultListLimit),
		now:         time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CreateOrder stores an order and its items in one transaction.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (Order, error) {
	if in.ActorID == 0 {
		return Order{}, fmt.Errorf("sales: %w", shared.ErrActorRequired)
	}
	if err := shared.Validate(in); err != nil {
		return Order{}, err
	}
	if in.TaxPercent.IsNegative() || in.Discount.IsNegative() {
		return Order{}, ErrInvalidPrice
	}

	subtotal := decimal.Zero
	items := make([]OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		if line.UnitPrice.IsNegative() {
			return Order{}, ErrInvalidPrice
		}
		total := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(total)
		items = append(items, OrderItem{
			MenuItemID: line.MenuItemID,
			Name:       strings.TrimSpace(line.Name),
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			LineTotal:  total,
			Notes:      line.Notes,
		})
	}
	if in.Discount.GreaterThan(subtotal) {
		return Order{}, ErrDiscountTooLarge
	}
	tax := shared.Round2(shared.PercentOf(subtotal.Sub(in.Discount), in.TaxPercent))

	order := Order{
		OrderNumber:  s.orderNumber(),
		TableNumber:  in.TableNumber,
		CustomerName: in.CustomerName,
		Status:       OrderOpen,
		Subtotal:     subtotal,
		TaxAmount:    tax,
		Discount:     in.Discount,
		TotalAmount:  subtotal.Sub(in.Discount).Add(tax),
		Notes:        in.Notes,
		CreatedBy:    in.ActorID,
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, item := range items {
			item.OrderID = id
			if err := tx.InsertOrderItem(ctx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("sales: create order: %w", err)
	}
	return s.repo.GetOrder(ctx, id)
}

// CompleteSale settles an open order and records the sale.
func (s *Service) CompleteSale(ctx context.Context, in CompleteInput) (Sale, error) {
	if in.ActorID == 0 {
		return Sale{}, fmt.Errorf("sales: %w", shared.ErrActorRequired)
	}
	if err := shared.Validate(in); err != nil {
		return Sale{}, err
	}
	saleDate := in.SaleDate
	if saleDate.IsZero() {
		saleDate = s.now()
	}

	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if order.Status != OrderOpen {
			return ErrOrderNotOpen
		}
		sale, err = tx.InsertSale(ctx, Sale{
			OrderID:       order.ID,
			Reference:     uuid.New(),
			TotalAmount:   order.Subtotal,
			Discount:      order.Discount,
			TaxAmount:     order.TaxAmount,
			FinalAmount:   order.TotalAmount,
			PaymentMethod: in.PaymentMethod,
			Status:        SaleCompleted,
			SaleDate:      saleDate,
			CreatedBy:     in.ActorID,
		})
		if err != nil {
			return err
		}
		return tx.SetOrderStatus(ctx, order.ID, OrderClosed)
	})
	if err != nil {
		return Sale{}, err
	}
	s.bump(ctx)
	return sale, nil
}

// RefundSale marks a completed sale refunded.
func (s *Service) RefundSale(ctx context.Context, id, actorID int64) (Sale, error) {
	return s.closeSale(ctx, id, actorID, SaleRefunded)
}

// CancelSale voids a completed sale.
func (s *Service) CancelSale(ctx context.Context, id, actorID int64) (Sale, error) {
	return s.closeSale(ctx, id, actorID, SaleCancelled)
}

func (s *Service) closeSale(ctx context.Context, id, actorID int64, status SaleStatus) (Sale, error) {
	if actorID == 0 {
		return Sale{}, fmt.Errorf("sales: %w", shared.ErrActorRequired)
	}
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != SaleCompleted {
			return ErrSaleNotCompleted
		}
		if err := tx.SetSaleStatus(ctx, id, status); err != nil {
			return err
		}
		current.Status = status
		sale = current
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.logger.Info("sale closed", slog.Int64("sale_id", id), slog.String("status", string(status)), slog.Int64("actor_id", actorID))
	s.bump(ctx)
	return sale, nil
}

// CancelOrder cancels an open order without a sale.
func (s *Service) CancelOrder(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != OrderOpen {
			return ErrOrderNotOpen
		}
		return tx.SetOrderStatus(ctx, id, OrderCancelled)
	})
}

// DeleteOrder hard-deletes an order that has no sale.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return s.repo.DeleteOrder(ctx, id)
}

// GetOrder loads one order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// GetSale loads one sale.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales lists sales newest first.
func (s *Service) ListSales(ctx context.Context, f SaleFilter) ([]Sale, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	f.Limit = shared.ClampLimit(f.Limit, s.listLimit)
	return s.repo.ListSales(ctx, f)
}

// Revenue sums counted sales within [from, to). A zero from covers all
// history.
func (s *Service) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, int, error) {
	return s.repo.Revenue(ctx, from, to, s.counted)
}

// DailyRevenue sums counted sales per calendar day of loc within [from, to).
func (s *Service) DailyRevenue(ctx context.Context, from, to time.Time, loc *time.Location) (map[string]DayRevenue, error) {
	tz := "UTC"
	if loc != nil {
		tz = loc.String()
	}
	return s.repo.DailyRevenue(ctx, from, to, tz, s.counted)
}

// CountedStatuses returns the statuses that count as revenue.
func (s *Service) CountedStatuses() []string {
	return append([]string(nil), s.counted...)
}

func (s *Service) orderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + s.now().Format("20060102") + "-" + id[:8]
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
