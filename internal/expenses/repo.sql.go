package expenses

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/platform/db"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Expense, error)
	SetStatus(ctx context.Context, id int64, status Status, actorID int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("expenses repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const expenseColumns = `e.id, e.category_id, c.name, c.type, e.description, e.amount, e.tax_amount, e.expense_date,
    e.status, COALESCE(e.vendor, ''), e.employee_id, COALESCE(e.purchase_ref, ''), COALESCE(e.allocation_marker, ''),
    COALESCE(e.created_by, 0), e.approved_by, e.approved_at, e.created_at, e.updated_at`

const expenseFrom = ` FROM expenses e JOIN expense_categories c ON c.id = e.category_id`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var typ, status string
	err := row.Scan(&e.ID, &e.CategoryID, &e.CategoryName, &typ, &e.Description, &e.Amount, &e.TaxAmount, &e.ExpenseDate,
		&status, &e.Vendor, &e.EmployeeID, &e.PurchaseRef, &e.AllocationMarker,
		&e.CreatedBy, &e.ApprovedBy, &e.ApprovedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrExpenseNotFound
		}
		return Expense{}, err
	}
	e.CategoryType = costcategory.ExpenseType(typ)
	e.Status = Status(status)
	return e, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.tx.QueryRow(ctx, `SELECT `+expenseColumns+expenseFrom+` WHERE e.id = $1 FOR UPDATE OF e`, id))
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE expenses SET status = $2,
    approved_by = CASE WHEN $2 = 'APPROVED' THEN $3 ELSE approved_by END,
    approved_at = CASE WHEN $2 = 'APPROVED' THEN NOW() ELSE approved_at END,
    updated_at = NOW()
WHERE id = $1`, id, string(status), actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (r *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.tx, log)
}

// Create inserts an expense and returns it with its category joined.
func (r *Repository) Create(ctx context.Context, in Input) (Expense, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses
    (category_id, description, amount, tax_amount, expense_date, status, vendor, employee_id, purchase_ref, created_by)
VALUES ($1, $2, $3, $4, $5::date, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10)
RETURNING id`,
		in.CategoryID, in.Description, in.Amount, in.TaxAmount, in.ExpenseDate.Format(shared.DateLayout),
		string(in.Status), in.Vendor, in.EmployeeID, in.PurchaseRef, in.ActorID).Scan(&id)
	if err != nil {
		return Expense{}, err
	}
	return r.Get(ctx, id)
}

// Get loads one expense.
func (r *Repository) Get(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `SELECT `+expenseColumns+expenseFrom+` WHERE e.id = $1`, id))
}

// UpdatePending rewrites a pending expense. ErrNotEditable is returned when
// the row exists but has left PENDING.
func (r *Repository) UpdatePending(ctx context.Context, id int64, in Input) (Expense, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE expenses SET
    category_id = $2, description = $3, amount = $4, tax_amount = $5, expense_date = $6::date,
    vendor = NULLIF($7, ''), employee_id = $8, purchase_ref = NULLIF($9, ''), updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'`,
		id, in.CategoryID, in.Description, in.Amount, in.TaxAmount, in.ExpenseDate.Format(shared.DateLayout),
		in.Vendor, in.EmployeeID, in.PurchaseRef)
	if err != nil {
		return Expense{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return Expense{}, err
		}
		return Expense{}, ErrNotEditable
	}
	return r.Get(ctx, id)
}

// Delete removes an expense permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

// List returns expenses newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Expense, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.CategoryID > 0 {
		add("e.category_id = ?", f.CategoryID)
	}
	if f.Type != "" {
		add("c.type = ?", string(f.Type))
	}
	if f.Status != "" {
		add("e.status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		add("e.expense_date >= ?::date", f.From.Format(shared.DateLayout))
	}
	if !f.To.IsZero() {
		add("e.expense_date <= ?::date", f.To.Format(shared.DateLayout))
	}
	if f.EmployeeID > 0 {
		add("e.employee_id = ?", f.EmployeeID)
	}

	query := `SELECT ` + expenseColumns + expenseFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	query += ` ORDER BY e.expense_date DESC, e.id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TotalsByType sums amounts per category type for dates in [from, to).
func (r *Repository) TotalsByType(ctx context.Context, from, to time.Time, statuses []string) (map[costcategory.ExpenseType]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.type, COALESCE(SUM(e.amount), 0)`+expenseFrom+`
WHERE e.expense_date >= $1::date AND e.expense_date < $2::date AND e.status = ANY($3)
GROUP BY c.type`, from.Format(shared.DateLayout), to.Format(shared.DateLayout), statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[costcategory.ExpenseType]decimal.Decimal)
	for rows.Next() {
		var typ string
		var total decimal.Decimal
		if err := rows.Scan(&typ, &total); err != nil {
			return nil, err
		}
		out[costcategory.ExpenseType(typ)] = total
	}
	return out, rows.Err()
}

// TotalsByCategory sums amounts per category for dates in [from, to),
// skipping the excluded category types.
func (r *Repository) TotalsByCategory(ctx context.Context, from, to time.Time, statuses, excluded []string) ([]CategoryTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, c.type, COALESCE(SUM(e.amount), 0)`+expenseFrom+`
WHERE e.expense_date >= $1::date AND e.expense_date < $2::date AND e.status = ANY($3)
  AND NOT (c.type = ANY($4))
GROUP BY c.id, c.name, c.type
ORDER BY 4 DESC, c.name`, from.Format(shared.DateLayout), to.Format(shared.DateLayout), statuses, excluded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		var typ string
		if err := rows.Scan(&ct.CategoryID, &ct.CategoryName, &typ, &ct.Amount); err != nil {
			return nil, err
		}
		ct.Type = costcategory.ExpenseType(typ)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// DailyTotalsByType sums amounts per expense date and category type for
// dates in [from, to).
func (r *Repository) DailyTotalsByType(ctx context.Context, from, to time.Time, statuses []string) (map[string]map[costcategory.ExpenseType]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.expense_date, c.type, COALESCE(SUM(e.amount), 0)`+expenseFrom+`
WHERE e.expense_date >= $1::date AND e.expense_date < $2::date AND e.status = ANY($3)
GROUP BY e.expense_date, c.type`, from.Format(shared.DateLayout), to.Format(shared.DateLayout), statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]map[costcategory.ExpenseType]decimal.Decimal)
	for rows.Next() {
		var day time.Time
		var typ string
		var total decimal.Decimal
		if err := rows.Scan(&day, &typ, &total); err != nil {
			return nil, err
		}
		key := day.Format(shared.DateLayout)
		if out[key] == nil {
			out[key] = make(map[costcategory.ExpenseType]decimal.Decimal)
		}
		out[key][costcategory.ExpenseType(typ)] = total
	}
	return out, rows.Err()
}
