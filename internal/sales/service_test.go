package sales

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/backoffice/internal/shared"
)

type memoryRepo struct {
	orders    map[int64]Order
	sales     map[int64]Sale
	nextID    int64
	lastCount []string
	failItem  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[int64]Order), sales: make(map[int64]Sale)}
}

type memoryTx struct {
	repo   *memoryRepo
	orders map[int64]Order
	sales  map[int64]Sale
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, orders: make(map[int64]Order), sales: make(map[int64]Sale)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, o := range tx.orders {
		r.orders[id] = o
	}
	for id, s := range tx.sales {
		r.sales[id] = s
	}
	return nil
}

func (tx *memoryTx) order(id int64) (Order, bool) {
	if o, ok := tx.orders[id]; ok {
		return o, true
	}
	o, ok := tx.repo.orders[id]
	return o, ok
}

func (tx *memoryTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	tx.orders[o.ID] = o
	return o.ID, nil
}

func (tx *memoryTx) InsertOrderItem(ctx context.Context, item OrderItem) error {
	if tx.repo.failItem != nil {
		return tx.repo.failItem
	}
	o, _ := tx.order(item.OrderID)
	o.Items = append(o.Items, item)
	tx.orders[o.ID] = o
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := tx.order(id)
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (tx *memoryTx) SetOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	o, _ := tx.order(id)
	o.Status = status
	tx.orders[id] = o
	return nil
}

func (tx *memoryTx) InsertSale(ctx context.Context, s Sale) (Sale, error) {
	tx.repo.nextID++
	s.ID = tx.repo.nextID
	tx.sales[s.ID] = s
	return s, nil
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	if s, ok := tx.sales[id]; ok {
		return s, nil
	}
	s, ok := tx.repo.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return s, nil
}

func (tx *memoryTx) SetSaleStatus(ctx context.Context, id int64, status SaleStatus) error {
	s, err := tx.GetSaleForUpdate(ctx, id)
	if err != nil {
		return err
	}
	s.Status = status
	tx.sales[id] = s
	return nil
}

func (r *memoryRepo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (r *memoryRepo) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := r.orders[id]; !ok {
		return ErrOrderNotFound
	}
	for _, s := range r.sales {
		if s.OrderID == id {
			return ErrOrderHasSale
		}
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryRepo) GetSale(ctx context.Context, id int64) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return s, nil
}

func (r *memoryRepo) ListSales(ctx context.Context, f SaleFilter) ([]Sale, error) {
	var out []Sale
	for _, s := range r.sales {
		out = append(out, s)
	}
	return out, nil
}

func (r *memoryRepo) Revenue(ctx context.Context, from, to time.Time, statuses []string) (decimal.Decimal, int, error) {
	r.lastCount = statuses
	total := decimal.Zero
	count := 0
	for _, s := range r.sales {
		if s.SaleDate.Before(from) || !s.SaleDate.Before(to) {
			continue
		}
		for _, st := range statuses {
			if string(s.Status) == st {
				total = total.Add(s.FinalAmount)
				count++
			}
		}
	}
	return total, count, nil
}

func (r *memoryRepo) DailyRevenue(ctx context.Context, from, to time.Time, tz string, statuses []string) (map[string]DayRevenue, error) {
	return map[string]DayRevenue{}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lunchOrder() OrderInput {
	return OrderInput{
		TableNumber: "T4",
		TaxPercent:  dec("10"),
		Discount:    dec("5000"),
		Items: []OrderItemInput{
			{Name: "Nasi Goreng", Quantity: 2, UnitPrice: dec("25000")},
			{Name: "Es Teh", Quantity: 1, UnitPrice: dec("15000")},
		},
		ActorID: 3,
	}
}

var noon = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, nil, Options{})
	svc.WithNow(func() time.Time { return noon })
	return svc
}

func TestCreateOrderComputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	order, err := svc.CreateOrder(context.Background(), lunchOrder())
	require.NoError(t, err)
	require.Equal(t, OrderOpen, order.Status)
	require.Len(t, order.Items, 2)
	require.True(t, order.Subtotal.Equal(dec("65000")))
	require.True(t, order.TaxAmount.Equal(dec("6000")))
	require.True(t, order.TotalAmount.Equal(dec("66000")), order.TotalAmount.String())
	require.Regexp(t, `^ORD-20240601-[0-9A-F]{8}$`, order.OrderNumber)
}

func TestCreateOrderRollsBackOnItemFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failItem = context.DeadlineExceeded
	svc := newTestService(repo)

	_, err := svc.CreateOrder(context.Background(), lunchOrder())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, repo.orders)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	in := lunchOrder()
	in.Items = nil
	_, err := svc.CreateOrder(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = lunchOrder()
	in.Discount = dec("100000")
	_, err = svc.CreateOrder(ctx, in)
	require.ErrorIs(t, err, ErrDiscountTooLarge)

	in = lunchOrder()
	in.ActorID = 0
	_, err = svc.CreateOrder(ctx, in)
	require.ErrorIs(t, err, shared.ErrActorRequired)
}

func TestSaleLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, lunchOrder())
	require.NoError(t, err)

	sale, err := svc.CompleteSale(ctx, CompleteInput{OrderID: order.ID, PaymentMethod: PaymentCash, ActorID: 3})
	require.NoError(t, err)
	require.Equal(t, SaleCompleted, sale.Status)
	require.True(t, sale.FinalAmount.Equal(dec("66000")))
	require.Equal(t, OrderClosed, repo.orders[order.ID].Status)

	_, err = svc.CompleteSale(ctx, CompleteInput{OrderID: order.ID, PaymentMethod: PaymentCard, ActorID: 3})
	require.ErrorIs(t, err, ErrOrderNotOpen)

	require.ErrorIs(t, svc.DeleteOrder(ctx, order.ID), ErrOrderHasSale)

	revenue, count, err := svc.Revenue(ctx, noon.Add(-time.Hour), noon.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.True(t, revenue.Equal(dec("66000")))
	require.Equal(t, []string{"COMPLETED"}, repo.lastCount)

	refunded, err := svc.RefundSale(ctx, sale.ID, 3)
	require.NoError(t, err)
	require.Equal(t, SaleRefunded, refunded.Status)

	_, err = svc.CancelSale(ctx, sale.ID, 3)
	require.ErrorIs(t, err, ErrSaleNotCompleted)

	revenue, count, err = svc.Revenue(ctx, noon.Add(-time.Hour), noon.Add(time.Hour))
	require.NoError(t, err)
	require.Zero(t, count)
	require.True(t, revenue.IsZero())
}

func TestCompleteSaleRejectsUnknownPaymentMethod(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order, err := svc.CreateOrder(context.Background(), lunchOrder())
	require.NoError(t, err)

	_, err = svc.CompleteSale(context.Background(), CompleteInput{OrderID: order.ID, PaymentMethod: "BARTER", ActorID: 3})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.sales)
}

func TestDeleteOpenOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	order, err := svc.CreateOrder(context.Background(), lunchOrder())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), order.ID))
	_, err = svc.GetOrder(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRevenueCountsConfiguredStatuses(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, Options{CountedStatuses: []SaleStatus{SaleCompleted, SaleCancelled}})
	_, _, err := svc.Revenue(context.Background(), time.Time{}, noon)
	require.NoError(t, err)
	require.Equal(t, []string{"COMPLETED", "CANCELLED"}, repo.lastCount)
}
