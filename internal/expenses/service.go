package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/inventory"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, in Input) (Expense, error)
	Get(ctx context.Context, id int64) (Expense, error)
	UpdatePending(ctx context.Context, id int64, in Input) (Expense, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]Expense, error)
	TotalsByType(ctx context.Context, from, to time.Time, statuses []string) (map[costcategory.ExpenseType]decimal.Decimal, error)
	TotalsByCategory(ctx context.Context, from, to time.Time, statuses, excluded []string) ([]CategoryTotal, error)
	DailyTotalsByType(ctx context.Context, from, to time.Time, statuses []string) (map[string]map[costcategory.ExpenseType]decimal.Decimal, error)
}

// Categories resolves cost categories for the ledger.
type Categories interface {
	FindOrCreate(ctx context.Context, t costcategory.ExpenseType, name, description string) (costcategory.Category, error)
	Get(ctx context.Context, id int64) (costcategory.Category, error)
}

// Invalidator is notified after writes so cached reports refresh.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Options configures Service.
type Options struct {
	// CountedStatuses are the statuses that count toward aggregates.
	CountedStatuses []Status
	// ListLimit is the default List cap.
	ListLimit int
}

// Service is the expense ledger.
type Service struct {
	repo        RepositoryPort
	categories  Categories
	logger      *slog.Logger
	invalidator Invalidator
	counted     []string
	listLimit   int
}

// NewService builds Service. invalidator may be nil.
func NewService(repo RepositoryPort, categories Categories, logger *slog.Logger, invalidator Invalidator, opts Options) *Service {
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
		categories:  categories,
		logger:      logger,
		invalidator: invalidator,
		counted:     counted,
		listLimit:   shared.ClampLimit(opts.ListLimit, shared.DefaultListLimit),
	}
}

// CountedStatuses returns the statuses included in aggregates.
func (s *Service) CountedStatuses() []string {
	return append([]string(nil), s.counted...)
}

// Create records a new expense against an already-resolved category.
func (s *Service) Create(ctx context.Context, in Input) (Expense, error) {
	if err := s.check(ctx, &in); err != nil {
		return Expense{}, err
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return Expense{}, fmt.Errorf("expenses: create: %w", err)
	}
	s.bump(ctx)
	return created, nil
}

// RecordCategorized resolves the category by business meaning and creates
// the expense. An empty name uses the canonical name for t.
func (s *Service) RecordCategorized(ctx context.Context, t costcategory.ExpenseType, name string, in Input) (Expense, error) {
	category, err := s.categories.FindOrCreate(ctx, t, name, "")
	if err != nil {
		return Expense{}, err
	}
	in.CategoryID = category.ID
	return s.Create(ctx, in)
}

// Get loads one expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

// Update edits a pending expense.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Expense, error) {
	if err := s.check(ctx, &in); err != nil {
		return Expense{}, err
	}
	updated, err := s.repo.UpdatePending(ctx, id, in)
	if err != nil {
		return Expense{}, err
	}
	s.bump(ctx)
	return updated, nil
}

// UpdateStatus moves an expense through its approval workflow and records an
// audit entry in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next Status, actorID int64) (Expense, error) {
	if actorID == 0 {
		return Expense{}, fmt.Errorf("expenses: %w", shared.ErrActorRequired)
	}
	if !next.Valid() {
		return Expense{}, ErrInvalidStatus
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
		}
		if err := tx.SetStatus(ctx, id, next, actorID); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "expense.status",
			Entity:   "expense",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": current.Status, "to": next},
		})
	})
	if err != nil {
		return Expense{}, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete hard-deletes an expense.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// List returns expenses matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Expense, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, costcategory.ErrInvalidType
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, shared.ErrInvalidRange
	}
	f.Limit = shared.ClampLimit(f.Limit, s.listLimit)
	return s.repo.List(ctx, f)
}

// TotalsByType sums counted expenses per category type for dates in
// [from, to). A zero from covers all history.
func (s *Service) TotalsByType(ctx context.Context, from, to time.Time) (map[costcategory.ExpenseType]decimal.Decimal, error) {
	return s.repo.TotalsByType(ctx, from, to, s.counted)
}

// OperationalBreakdown sums counted expenses per category for dates in
// [from, to), leaving out payroll and stock categories.
func (s *Service) OperationalBreakdown(ctx context.Context, from, to time.Time) ([]CategoryTotal, error) {
	return s.repo.TotalsByCategory(ctx, from, to, s.counted, nonOperationalTypes())
}

// DailyTotalsByType sums counted expenses per day and type for dates in [from, to).
func (s *Service) DailyTotalsByType(ctx context.Context, from, to time.Time) (map[string]map[costcategory.ExpenseType]decimal.Decimal, error) {
	return s.repo.DailyTotalsByType(ctx, from, to, s.counted)
}

// HandleStockPurchased posts a priced stock input as an approved STOCK expense.
func (s *Service) HandleStockPurchased(ctx context.Context, evt inventory.StockPurchasedEvent) error {
	_, err := s.RecordCategorized(ctx, costcategory.TypeStock, "", Input{
		Description: fmt.Sprintf("Stock purchase: %s %s of %s", evt.Quantity, evt.Unit, evt.ItemName),
		Amount:      shared.Round2(evt.Amount()),
		ExpenseDate: evt.PurchasedAt,
		PurchaseRef: "item:" + strconv.FormatInt(evt.ItemID, 10),
		Status:      StatusApproved,
		ActorID:     evt.ActorID,
	})
	return err
}

func (s *Service) check(ctx context.Context, in *Input) error {
	if in.ActorID == 0 {
		return fmt.Errorf("expenses: %w", shared.ErrActorRequired)
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.TaxAmount.IsNegative() {
		return ErrInvalidTax
	}
	if err := shared.Validate(*in); err != nil {
		return err
	}
	category, err := s.categories.Get(ctx, in.CategoryID)
	if err != nil {
		return err
	}
	if !category.IsActive {
		return ErrCategoryInactive
	}
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

// nonOperationalTypes are reported on their own lines: payroll as employee
// cost and stock through usage records.
func nonOperationalTypes() []string {
	return []string{string(costcategory.TypePayroll), string(costcategory.TypeStock)}
}

var _ inventory.IntegrationHandler = (*Service)(nil)
