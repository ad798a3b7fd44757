package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/shared"
)

const (
	lockTTL     = 30 * time.Second
	lockBackoff = 100 * time.Millisecond
	lockRetries = 50
)

// Store is the persistence the materializer needs.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEmployees(ctx context.Context, includeInactive bool) ([]Employee, error)
	AllocationTotals(ctx context.Context, date string) (decimal.Decimal, int, error)
}

// CategoryResolver returns the cost category rows are booked against.
type CategoryResolver interface {
	FindOrCreate(ctx context.Context, t costcategory.ExpenseType, name, description string) (costcategory.Category, error)
}

// Locker is satisfied by *redislock.Client.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Invalidator is notified after allocations are written.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Materializer turns monthly salaries into one expense row per employee and
// calendar day.
type Materializer struct {
	store       Store
	categories  CategoryResolver
	locker      Locker
	invalidator Invalidator
	logger      *slog.Logger
	divisor     decimal.Decimal
	loc         *time.Location
}

// MaterializerOption customises Materializer.
type MaterializerOption func(*Materializer)

// WithLocker serialises runs across processes. Without it the unique index
// still prevents duplicates.
func WithLocker(l Locker) MaterializerOption {
	return func(m *Materializer) { m.locker = l }
}

// WithInvalidator registers the report cache invalidator.
func WithInvalidator(inv Invalidator) MaterializerOption {
	return func(m *Materializer) { m.invalidator = inv }
}

// WithDivisor overrides the salary divisor.
func WithDivisor(days int) MaterializerOption {
	return func(m *Materializer) {
		if days > 0 {
			m.divisor = decimal.NewFromInt(int64(days))
		}
	}
}

// WithLocation sets the restaurant time zone used to pick the calendar day.
func WithLocation(loc *time.Location) MaterializerOption {
	return func(m *Materializer) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// NewMaterializer constructs Materializer.
func NewMaterializer(store Store, categories CategoryResolver, logger *slog.Logger, opts ...MaterializerOption) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Materializer{
		store:      store,
		categories: categories,
		logger:     logger,
		divisor:    decimal.NewFromInt(DefaultSalaryDivisor),
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DailyAmount is the rounded allocation for one day of a monthly salary.
func (m *Materializer) DailyAmount(salary decimal.Decimal) decimal.Decimal {
	return shared.Round2(salary.Div(m.divisor))
}

// MaterializeDailySalaries records the daily salary allocation of every
// active employee for the calendar day of date. Repeated calls for the same
// day report the rows already present instead of writing new ones.
func (m *Materializer) MaterializeDailySalaries(ctx context.Context, date time.Time) (MaterializeResult, error) {
	day := date.In(m.loc).Format(shared.DateLayout)
	log := m.logger.With(slog.String("date", day))

	if lock := m.obtain(ctx, day, log); lock != nil {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn("release salary lock", slog.Any("error", err))
			}
		}()
	}

	if res, ok, err := m.recorded(ctx, day); err != nil || ok {
		return res, err
	}

	active, err := m.store.ListEmployees(ctx, false)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("payroll: list employees: %w", err)
	}
	employees := m.salaried(active)
	if len(employees) < len(active) {
		log.Info("skipping employees without a daily salary", slog.Int("skipped", len(active)-len(employees)))
	}
	if len(employees) == 0 {
		log.Info("no salaried employees for salary allocation")
		return MaterializeResult{Date: day, TotalAmount: decimal.Zero}, nil
	}

	category, err := m.categories.FindOrCreate(ctx, costcategory.TypePayroll, "", "Daily salary allocations")
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("payroll: resolve category: %w", err)
	}

	total := decimal.Zero
	inserted := 0
	err = m.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, e := range employees {
			a := Allocation{EmployeeID: e.ID, EmployeeName: e.FullName, Amount: m.DailyAmount(e.Salary)}
			ok, err := tx.InsertAllocation(ctx, day, category.ID, a)
			if err != nil {
				return fmt.Errorf("employee %d: %w", e.ID, err)
			}
			if ok {
				inserted++
				total = total.Add(a.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("payroll: insert allocations: %w", err)
	}

	if inserted < len(employees) {
		// Another run got there first for some rows; report what is stored.
		res, _, err := m.recorded(ctx, day)
		if err != nil {
			return MaterializeResult{}, err
		}
		res.AlreadyRecorded = inserted == 0
		m.bump(ctx, log, inserted)
		return res, nil
	}

	m.bump(ctx, log, inserted)
	log.Info("salary allocations recorded", slog.Int("employees", inserted), slog.String("total", total.StringFixed(2)))
	return MaterializeResult{Date: day, TotalAmount: total, EmployeeCount: inserted}, nil
}

// salaried keeps employees whose rounded daily amount is positive. Hourly
// staff carry a zero monthly salary and get no allocation row.
func (m *Materializer) salaried(employees []Employee) []Employee {
	out := make([]Employee, 0, len(employees))
	for _, e := range employees {
		if m.DailyAmount(e.Salary).IsPositive() {
			out = append(out, e)
		}
	}
	return out
}

func (m *Materializer) recorded(ctx context.Context, day string) (MaterializeResult, bool, error) {
	total, count, err := m.store.AllocationTotals(ctx, day)
	if err != nil {
		return MaterializeResult{}, false, fmt.Errorf("payroll: check existing allocations: %w", err)
	}
	res := MaterializeResult{Date: day, AlreadyRecorded: count > 0, TotalAmount: total, EmployeeCount: count}
	return res, count > 0, nil
}

func (m *Materializer) obtain(ctx context.Context, day string, log *slog.Logger) *redislock.Lock {
	if m.locker == nil {
		return nil
	}
	lock, err := m.locker.Obtain(ctx, "payroll:salary:"+day, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockBackoff), lockRetries),
	})
	if err != nil {
		log.Warn("salary lock unavailable; relying on unique index", slog.Any("error", err))
		return nil
	}
	return lock
}

func (m *Materializer) bump(ctx context.Context, log *slog.Logger, inserted int) {
	if inserted == 0 || m.invalidator == nil {
		return
	}
	if err := m.invalidator.Bump(ctx); err != nil {
		log.Warn("invalidate report cache", slog.Any("error", err))
	}
}
