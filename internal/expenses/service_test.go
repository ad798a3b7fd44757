package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/inventory"
	"github.com/kitchenledger/backoffice/internal/shared"
)

type memoryRepo struct {
	expenses  map[int64]Expense
	audits    []shared.AuditLog
	nextID    int64
	lastList  Filter
	lastTotal []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{expenses: make(map[int64]Expense)}
}

type memoryTx struct {
	repo    *memoryRepo
	pending map[int64]Expense
	audits  []shared.AuditLog
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, pending: make(map[int64]Expense)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, e := range tx.pending {
		r.expenses[id] = e
	}
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id int64) (Expense, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	e, err := tx.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	e.Status = status
	if status == StatusApproved {
		e.ApprovedBy = &actorID
	}
	tx.pending[id] = e
	return nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	tx.audits = append(tx.audits, log)
	return nil
}

func (r *memoryRepo) Create(ctx context.Context, in Input) (Expense, error) {
	r.nextID++
	e := Expense{
		ID: r.nextID, CategoryID: in.CategoryID, Description: in.Description, Amount: in.Amount,
		TaxAmount: in.TaxAmount, ExpenseDate: in.ExpenseDate, Status: in.Status, CreatedBy: in.ActorID,
	}
	r.expenses[e.ID] = e
	return e, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Expense, error) {
	e, ok := r.expenses[id]
	if !ok {
		return Expense{}, ErrExpenseNotFound
	}
	return e, nil
}

func (r *memoryRepo) UpdatePending(ctx context.Context, id int64, in Input) (Expense, error) {
	e, err := r.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if e.Status != StatusPending {
		return Expense{}, ErrNotEditable
	}
	e.Description = in.Description
	e.Amount = in.Amount
	r.expenses[id] = e
	return e, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.expenses[id]; !ok {
		return ErrExpenseNotFound
	}
	delete(r.expenses, id)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, f Filter) ([]Expense, error) {
	r.lastList = f
	return nil, nil
}

func (r *memoryRepo) TotalsByType(ctx context.Context, from, to time.Time, statuses []string) (map[costcategory.ExpenseType]decimal.Decimal, error) {
	r.lastTotal = statuses
	return map[costcategory.ExpenseType]decimal.Decimal{}, nil
}

func (r *memoryRepo) TotalsByCategory(ctx context.Context, from, to time.Time, statuses, excluded []string) ([]CategoryTotal, error) {
	r.lastTotal = excluded
	return nil, nil
}

func (r *memoryRepo) DailyTotalsByType(ctx context.Context, from, to time.Time, statuses []string) (map[string]map[costcategory.ExpenseType]decimal.Decimal, error) {
	return nil, nil
}

type fakeCategories struct {
	byID   map[int64]costcategory.Category
	nextID int64
}

func newFakeCategories(cats ...costcategory.Category) *fakeCategories {
	f := &fakeCategories{byID: make(map[int64]costcategory.Category), nextID: 100}
	for _, c := range cats {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCategories) FindOrCreate(ctx context.Context, t costcategory.ExpenseType, name, description string) (costcategory.Category, error) {
	if name == "" {
		name = costcategory.CanonicalName(t)
	}
	for _, c := range f.byID {
		if c.Name == name {
			return c, nil
		}
	}
	f.nextID++
	c := costcategory.Category{ID: f.nextID, Name: name, Type: t, IsActive: true}
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCategories) Get(ctx context.Context, id int64) (costcategory.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return costcategory.Category{}, costcategory.ErrCategoryNotFound
	}
	return c, nil
}

var (
	utilities = costcategory.Category{ID: 1, Name: "Utilities", Type: costcategory.TypeUtilities, IsActive: true}
	retired   = costcategory.Category{ID: 2, Name: "Old Rent", Type: costcategory.TypeRent}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validInput() Input {
	return Input{
		CategoryID:  utilities.ID,
		Description: "Electricity June",
		Amount:      dec("420.50"),
		ExpenseDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		ActorID:     9,
	}
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, newFakeCategories(utilities, retired), nil, nil, Options{})
}

func TestCreateDefaultsToPending(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	e, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, StatusPending, e.Status)
	require.Len(t, repo.expenses, 1)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	in := validInput()
	in.ActorID = 0
	_, err := svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrActorRequired)

	in = validInput()
	in.Amount = decimal.Zero
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrInvalidAmount)

	in = validInput()
	in.Description = ""
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = validInput()
	in.CategoryID = retired.ID
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrCategoryInactive)

	in = validInput()
	in.CategoryID = 77
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateOnlyWhilePending(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Amount = dec("430")
	updated, err := svc.Update(ctx, e.ID, in)
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(dec("430")))

	_, err = svc.UpdateStatus(ctx, e.ID, StatusApproved, 4)
	require.NoError(t, err)

	_, err = svc.Update(ctx, e.ID, in)
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestUpdateStatusWorkflow(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, e.ID, StatusPaid, 4)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, repo.audits)

	approved, err := svc.UpdateStatus(ctx, e.ID, StatusApproved, 4)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)

	paid, err := svc.UpdateStatus(ctx, e.ID, StatusPaid, 4)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.Len(t, repo.audits, 2)
	require.Equal(t, "expense.status", repo.audits[1].Action)

	_, err = svc.UpdateStatus(ctx, e.ID, StatusRejected, 4)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, e.ID, StatusApproved, 0)
	require.ErrorIs(t, err, shared.ErrActorRequired)
}

func TestDeleteIsHard(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	e, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, e.ID))
	require.Empty(t, repo.expenses)
	require.ErrorIs(t, svc.Delete(ctx, e.ID), ErrExpenseNotFound)
	require.Equal(t, shared.Deletable, DeletionPolicy)
}

func TestListClampsLimit(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, shared.DefaultListLimit, repo.lastList.Limit)

	_, err = svc.List(ctx, Filter{Limit: 10000, Type: costcategory.TypePayroll})
	require.NoError(t, err)
	require.Equal(t, shared.MaxListLimit, repo.lastList.Limit)
	require.Equal(t, costcategory.TypePayroll, repo.lastList.Type)

	_, err = svc.List(ctx, Filter{Status: "LOST"})
	require.ErrorIs(t, err, ErrInvalidStatus)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	_, err = svc.List(ctx, Filter{From: day, To: day.AddDate(0, 0, -1)})
	require.ErrorIs(t, err, shared.ErrInvalidRange)
}

func TestCountedStatusesDefaultAndOverride(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	require.Equal(t, []string{"APPROVED", "PAID"}, svc.CountedStatuses())

	_, err := svc.TotalsByType(context.Background(), time.Time{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"APPROVED", "PAID"}, repo.lastTotal)

	strict := NewService(repo, newFakeCategories(), nil, nil, Options{CountedStatuses: []Status{StatusPaid}})
	_, err = strict.TotalsByType(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"PAID"}, repo.lastTotal)

	_, err = strict.OperationalBreakdown(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"PAYROLL", "STOCK"}, repo.lastTotal)
}

func TestHandleStockPurchasedPostsApprovedStockExpense(t *testing.T) {
	repo := newMemoryRepo()
	cats := newFakeCategories()
	svc := NewService(repo, cats, nil, nil, Options{})

	err := svc.HandleStockPurchased(context.Background(), inventory.StockPurchasedEvent{
		ItemID:      5,
		ItemName:    "Tomatoes",
		Unit:        "kg",
		Quantity:    dec("3"),
		UnitCost:    dec("10.333"),
		ActorID:     2,
		PurchasedAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, repo.expenses, 1)
	e := repo.expenses[1]
	require.Equal(t, StatusApproved, e.Status)
	require.True(t, e.Amount.Equal(dec("31")), e.Amount.String())
	require.Equal(t, "Stock purchase: 3 kg of Tomatoes", e.Description)

	cat, err := cats.Get(context.Background(), e.CategoryID)
	require.NoError(t, err)
	require.Equal(t, "Stock Purchases", cat.Name)
	require.Equal(t, costcategory.TypeStock, cat.Type)
}

// categoryTable is a costcategory.Store keyed by name.
type categoryTable struct {
	rows map[string]costcategory.Category
}

func (c *categoryTable) FindByName(ctx context.Context, name string) (costcategory.Category, error) {
	row, ok := c.rows[name]
	if !ok {
		return costcategory.Category{}, costcategory.ErrCategoryNotFound
	}
	return row, nil
}

func (c *categoryTable) Get(ctx context.Context, id int64) (costcategory.Category, error) {
	for _, row := range c.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return costcategory.Category{}, costcategory.ErrCategoryNotFound
}

func (c *categoryTable) InsertIfAbsent(ctx context.Context, in costcategory.Category) (costcategory.Category, bool, error) {
	if _, ok := c.rows[in.Name]; ok {
		return costcategory.Category{}, false, nil
	}
	in.ID = int64(len(c.rows) + 1)
	c.rows[in.Name] = in
	return in, true, nil
}

func (c *categoryTable) List(ctx context.Context, includeInactive bool) ([]costcategory.Category, error) {
	return nil, nil
}

func (c *categoryTable) Deactivate(ctx context.Context, id int64) error {
	return c.setActive(id, false)
}

func (c *categoryTable) Reactivate(ctx context.Context, id int64) (costcategory.Category, error) {
	if err := c.setActive(id, true); err != nil {
		return costcategory.Category{}, err
	}
	return c.Get(ctx, id)
}

func (c *categoryTable) setActive(id int64, active bool) error {
	for name, row := range c.rows {
		if row.ID == id {
			row.IsActive = active
			c.rows[name] = row
			return nil
		}
	}
	return costcategory.ErrCategoryNotFound
}

func TestStockPurchasePostsAfterStockCategoryWasDeactivated(t *testing.T) {
	table := &categoryTable{rows: map[string]costcategory.Category{
		"Stock Purchases": {ID: 7, Name: "Stock Purchases", Type: costcategory.TypeStock},
	}}
	repo := newMemoryRepo()
	svc := NewService(repo, costcategory.NewResolver(table), nil, nil, Options{})

	err := svc.HandleStockPurchased(context.Background(), inventory.StockPurchasedEvent{
		ItemID:      5,
		ItemName:    "Rice",
		Unit:        "kg",
		Quantity:    dec("10"),
		UnitCost:    dec("12"),
		ActorID:     2,
		PurchasedAt: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, table.rows["Stock Purchases"].IsActive)
	require.Len(t, repo.expenses, 1)
	require.Equal(t, int64(7), repo.expenses[1].CategoryID)
}
