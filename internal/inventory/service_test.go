package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/backoffice/internal/shared"
)

type memoryRepo struct {
	items  map[int64]Item
	usages []StockUsage
	logs   []InventoryLog
	nextID int64
	// failLog makes InsertLog fail to exercise rollback.
	failLog error
}

// memoryTx stages writes and applies them only when the callback succeeds.
type memoryTx struct {
	repo   *memoryRepo
	items  map[int64]Item
	usages []StockUsage
	logs   []InventoryLog
}

func newMemoryRepo(items ...Item) *memoryRepo {
	r := &memoryRepo{items: make(map[int64]Item)}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, items: make(map[int64]Item)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, it := range tx.items {
		r.items[id] = it
	}
	r.usages = append(r.usages, tx.usages...)
	r.logs = append(r.logs, tx.logs...)
	return nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	if it, ok := tx.items[id]; ok {
		return it, nil
	}
	it, ok := tx.repo.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (tx *memoryTx) SetItemStock(ctx context.Context, id int64, stock, cost decimal.Decimal) error {
	it, err := tx.GetItemForUpdate(ctx, id)
	if err != nil {
		return err
	}
	it.CurrentStock = stock
	it.CostPrice = cost
	tx.items[id] = it
	return nil
}

func (tx *memoryTx) InsertUsage(ctx context.Context, u StockUsage) (StockUsage, error) {
	tx.repo.nextID++
	u.ID = tx.repo.nextID
	tx.usages = append(tx.usages, u)
	return u, nil
}

func (tx *memoryTx) InsertLog(ctx context.Context, l InventoryLog) error {
	if tx.repo.failLog != nil {
		return tx.repo.failLog
	}
	tx.logs = append(tx.logs, l)
	return nil
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (r *memoryRepo) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	r.nextID++
	it := Item{ID: r.nextID, SKU: in.SKU, Name: in.Name, Unit: in.Unit, CostPrice: in.CostPrice,
		CurrentStock: in.InitialStock, ReorderLevel: in.ReorderLevel, IsActive: true}
	r.items[it.ID] = it
	return it, nil
}

func (r *memoryRepo) UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error) {
	it, err := r.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	it.Name = in.Name
	r.items[id] = it
	return it, nil
}

func (r *memoryRepo) DeactivateItem(ctx context.Context, id int64) error {
	it, err := r.GetItem(ctx, id)
	if err != nil {
		return err
	}
	it.IsActive = false
	r.items[id] = it
	return nil
}

func (r *memoryRepo) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *memoryRepo) LowStock(ctx context.Context) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if it.NeedsReorder() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListUsage(ctx context.Context, filter UsageFilter) ([]StockUsage, error) {
	return append([]StockUsage(nil), r.usages...), nil
}

func (r *memoryRepo) UsageCostByReason(ctx context.Context, from, to time.Time) (map[UsageType]decimal.Decimal, error) {
	out := make(map[UsageType]decimal.Decimal)
	for _, u := range r.usages {
		if !u.UsageDate.Before(from) && u.UsageDate.Before(to) {
			out[u.Reason] = out[u.Reason].Add(u.TotalCost)
		}
	}
	return out, nil
}

func (r *memoryRepo) DailyUsageCost(ctx context.Context, from, to time.Time, tz string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{}, nil
}

func (r *memoryRepo) InventoryValue(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range r.items {
		if it.IsActive {
			total = total.Add(it.CurrentStock.Mul(it.CostPrice))
		}
	}
	return total, nil
}

type purchaseRecorder struct {
	events []StockPurchasedEvent
	err    error
}

func (p *purchaseRecorder) HandleStockPurchased(ctx context.Context, evt StockPurchasedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

type bumpCounter struct{ n int }

func (b *bumpCounter) Bump(context.Context) error { b.n++; return nil }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tomatoes() Item {
	return Item{ID: 1, SKU: "VEG-TOM", Name: "Tomatoes", Unit: "kg", CostPrice: dec("60"), CurrentStock: dec("2"), IsActive: true}
}

func TestRecordUsageConsumesStockAtCurrentCost(t *testing.T) {
	repo := newMemoryRepo(tomatoes())
	bumps := &bumpCounter{}
	svc := NewService(repo, nil, nil, bumps)
	ctx := context.Background()

	usage, err := svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("2"), Type: UsageRecipe, ActorID: 7})
	require.NoError(t, err)
	require.True(t, usage.TotalCost.Equal(dec("120")), usage.TotalCost.String())
	require.True(t, usage.CostPerUnit.Equal(dec("60")))
	require.True(t, repo.items[1].CurrentStock.IsZero())
	require.Len(t, repo.logs, 1)
	require.True(t, repo.logs[0].PreviousStock.Equal(dec("2")))
	require.True(t, repo.logs[0].NewStock.IsZero())
	require.Equal(t, int64(7), repo.logs[0].ActorID)
	require.Contains(t, repo.logs[0].Reason, "Recipe usage: 2 kg of Tomatoes")
	require.Equal(t, 1, bumps.n)

	_, err = svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("1"), Type: UsageRecipe, ActorID: 7})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, "Insufficient stock. Available: 0 kg", shared.UserMessage(err))
	require.Len(t, repo.usages, 1)
	require.Len(t, repo.logs, 1)
}

func TestRecordUsageRejectsOverdrawWithoutMutation(t *testing.T) {
	repo := newMemoryRepo(tomatoes())
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordUsage(context.Background(), UsageInput{ItemID: 1, Quantity: dec("2.5"), Type: UsageWastage, ActorID: 1})
	var shortage *InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.True(t, shortage.Available.Equal(dec("2")))
	require.Equal(t, "Insufficient stock. Available: 2 kg", shortage.UserMessage())
	require.True(t, repo.items[1].CurrentStock.Equal(dec("2")))
	require.Empty(t, repo.usages)
	require.Empty(t, repo.logs)
}

func TestRecordUsageRollsBackOnLogFailure(t *testing.T) {
	repo := newMemoryRepo(tomatoes())
	repo.failLog = errors.New("disk full")
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.RecordUsage(context.Background(), UsageInput{ItemID: 1, Quantity: dec("1"), Type: UsageRecipe, ActorID: 1})
	require.Error(t, err)
	require.True(t, repo.items[1].CurrentStock.Equal(dec("2")))
	require.Empty(t, repo.usages)
}

func TestRecordUsageValidation(t *testing.T) {
	repo := newMemoryRepo(tomatoes())
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("1"), Type: UsageRecipe})
	require.ErrorIs(t, err, shared.ErrActorRequired)

	_, err = svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("0"), Type: UsageRecipe, ActorID: 1})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("1"), Type: "EATEN", ActorID: 1})
	require.ErrorIs(t, err, ErrInvalidUsageType)

	_, err = svc.RecordUsage(ctx, UsageInput{ItemID: 99, Quantity: dec("1"), Type: UsageRecipe, ActorID: 1})
	require.ErrorIs(t, err, ErrItemNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordUsageRejectsInactiveItem(t *testing.T) {
	item := tomatoes()
	item.IsActive = false
	svc := NewService(newMemoryRepo(item), nil, nil, nil)
	_, err := svc.RecordUsage(context.Background(), UsageInput{ItemID: 1, Quantity: dec("1"), Type: UsageOther, ActorID: 1})
	require.ErrorIs(t, err, ErrItemInactive)
}

func TestAddStockMovingAverageAndPurchase(t *testing.T) {
	item := tomatoes()
	item.CurrentStock = dec("10")
	item.CostPrice = dec("100")
	repo := newMemoryRepo(item)
	purchases := &purchaseRecorder{}
	svc := NewService(repo, nil, purchases, nil)
	cost := dec("130")

	updated, err := svc.AddStock(context.Background(), StockInInput{ItemID: 1, Quantity: dec("5"), UnitCost: &cost, RecordExpense: true, ActorID: 3})
	require.NoError(t, err)
	require.True(t, updated.CurrentStock.Equal(dec("15")))
	require.True(t, updated.CostPrice.Equal(dec("110")), updated.CostPrice.String())
	require.Len(t, repo.logs, 1)
	require.Equal(t, LogStockIn, repo.logs[0].Type)
	require.Len(t, purchases.events, 1)
	require.True(t, purchases.events[0].Amount().Equal(dec("650")))
	require.True(t, updated.ExpensePosted)
	require.Empty(t, updated.Warning)
}

func TestAddStockSucceedsWhenPurchasePostingFails(t *testing.T) {
	repo := newMemoryRepo(tomatoes())
	purchases := &purchaseRecorder{err: shared.NewRuleError(shared.ErrConflict,
		"expenses: category is inactive", "The expense category is inactive.")}
	bumps := &bumpCounter{}
	svc := NewService(repo, nil, purchases, bumps)
	cost := dec("60")

	updated, err := svc.AddStock(context.Background(), StockInInput{ItemID: 1, Quantity: dec("4"), UnitCost: &cost, RecordExpense: true, ActorID: 3})
	require.NoError(t, err)
	require.True(t, updated.CurrentStock.Equal(dec("6")))
	require.False(t, updated.ExpensePosted)
	require.Contains(t, updated.Warning, "The expense category is inactive.")
	require.True(t, repo.items[1].CurrentStock.Equal(dec("6")))
	require.Len(t, repo.logs, 1)
	require.Equal(t, 1, bumps.n)
}

func TestAddStockWithoutCostKeepsPrice(t *testing.T) {
	repo := newMemoryRepo(tomatoes())
	purchases := &purchaseRecorder{}
	svc := NewService(repo, nil, purchases, nil)

	updated, err := svc.AddStock(context.Background(), StockInInput{ItemID: 1, Quantity: dec("3"), RecordExpense: true, ActorID: 3})
	require.NoError(t, err)
	require.True(t, updated.CurrentStock.Equal(dec("5")))
	require.True(t, updated.CostPrice.Equal(dec("60")))
	require.Empty(t, purchases.events)
}

func TestInventoryValueSkipsInactive(t *testing.T) {
	inactive := Item{ID: 2, Name: "Basil", Unit: "kg", CostPrice: dec("10"), CurrentStock: dec("5")}
	svc := NewService(newMemoryRepo(tomatoes(), inactive), nil, nil, nil)
	value, err := svc.InventoryValue(context.Background())
	require.NoError(t, err)
	require.True(t, value.Equal(dec("120")))
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	_, err := svc.CreateItem(context.Background(), ItemInput{Name: "Flour", Unit: "kg"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateItem(context.Background(), ItemInput{SKU: "DRY-FLR", Name: "Flour", Unit: "kg", CostPrice: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	item, err := svc.CreateItem(context.Background(), ItemInput{SKU: "DRY-FLR", Name: "Flour", Unit: "kg", CostPrice: dec("1.2"), InitialStock: dec("25")})
	require.NoError(t, err)
	require.True(t, item.IsActive)
}

func TestLowStockAndUsageFilter(t *testing.T) {
	low := tomatoes()
	low.ReorderLevel = dec("2")
	onions := Item{ID: 2, SKU: "VEG-ONI", Name: "Onions", Unit: "kg", CostPrice: dec("20"), CurrentStock: dec("9"), ReorderLevel: dec("3"), IsActive: true}
	svc := NewService(newMemoryRepo(low, onions), nil, nil, nil)
	ctx := context.Background()

	items, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "VEG-TOM", items[0].SKU)

	_, err = svc.ListUsage(ctx, UsageFilter{Reason: "THEFT"})
	require.ErrorIs(t, err, ErrInvalidUsageType)

	_, err = svc.RecordUsage(ctx, UsageInput{ItemID: 2, Quantity: dec("1"), Type: UsageWastage, ActorID: 1})
	require.NoError(t, err)
	usages, err := svc.ListUsage(ctx, UsageFilter{Reason: UsageWastage})
	require.NoError(t, err)
	require.Len(t, usages, 1)
}

func TestRecordUsageRoundsCostAndRejectsFineQuantities(t *testing.T) {
	item := tomatoes()
	item.CostPrice = dec("33.33")
	repo := newMemoryRepo(item)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	usage, err := svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("0.125"), Type: UsageRecipe, ActorID: 4})
	require.NoError(t, err)
	// 0.125 * 33.33 = 4.16625
	require.Equal(t, "4.17", usage.TotalCost.String())

	_, err = svc.RecordUsage(ctx, UsageInput{ItemID: 1, Quantity: dec("0.0005"), Type: UsageWastage, ActorID: 4})
	require.ErrorIs(t, err, ErrQuantityPrecision)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, repo.usages, 1)
	require.True(t, repo.items[1].CurrentStock.Equal(dec("1.875")))

	_, err = svc.AddStock(ctx, StockInInput{ItemID: 1, Quantity: dec("1.2345"), ActorID: 4})
	require.ErrorIs(t, err, ErrQuantityPrecision)
}
