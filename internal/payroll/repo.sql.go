package payroll

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/db"
)

// Repository persists employees and salary allocations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertUser(ctx context.Context, in EmployeeInput) (int64, error)
	InsertEmployee(ctx context.Context, userID int64, in EmployeeInput) (int64, error)
	UpdateUser(ctx context.Context, employeeID int64, in EmployeeInput) error
	UpdateEmployee(ctx context.Context, employeeID int64, in EmployeeInput) error
	InsertAllocation(ctx context.Context, date string, categoryID int64, a Allocation) (bool, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("payroll repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) InsertUser(ctx context.Context, in EmployeeInput) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO users (name, email, role, is_active)
VALUES ($1, $2, 'STAFF', TRUE) RETURNING id`, in.FullName, in.Email).Scan(&id)
	if db.IsUniqueViolation(err, "") {
		return 0, ErrDuplicateEmployee
	}
	return id, err
}

func (r *txRepository) InsertEmployee(ctx context.Context, userID int64, in EmployeeInput) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO employees (user_id, employee_code, position, salary, hourly_rate, hire_date, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, TRUE) RETURNING id`,
		userID, in.EmployeeCode, in.Position, in.Salary, in.HourlyRate, in.HireDate).Scan(&id)
	if db.IsUniqueViolation(err, "") {
		return 0, ErrDuplicateEmployee
	}
	return id, err
}

func (r *txRepository) UpdateUser(ctx context.Context, employeeID int64, in EmployeeInput) error {
	tag, err := r.tx.Exec(ctx, `UPDATE users u SET name = $2, email = $3, updated_at = NOW()
FROM employees e WHERE e.user_id = u.id AND e.id = $1`, employeeID, in.FullName, in.Email)
	if db.IsUniqueViolation(err, "") {
		return ErrDuplicateEmployee
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (r *txRepository) UpdateEmployee(ctx context.Context, employeeID int64, in EmployeeInput) error {
	tag, err := r.tx.Exec(ctx, `UPDATE employees SET employee_code = $2, position = NULLIF($3, ''), salary = $4,
    hourly_rate = $5, hire_date = $6, updated_at = NOW()
WHERE id = $1`, employeeID, in.EmployeeCode, in.Position, in.Salary, in.HourlyRate, in.HireDate)
	if db.IsUniqueViolation(err, "") {
		return ErrDuplicateEmployee
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// InsertAllocation writes one approved PAYROLL expense row. It reports false
// when the row for that employee and day already exists.
func (r *txRepository) InsertAllocation(ctx context.Context, date string, categoryID int64, a Allocation) (bool, error) {
	tag, err := r.tx.Exec(ctx, `INSERT INTO expenses
    (category_id, description, amount, tax_amount, expense_date, status, employee_id, allocation_marker, created_by)
VALUES ($1, $2, $3, 0, $4::date, 'APPROVED', $5, $6, NULL)
ON CONFLICT (expense_date, employee_id) WHERE allocation_marker = 'DAILY_SALARY' DO NOTHING`,
		categoryID, AllocationDescription+" - "+a.EmployeeName, a.Amount, date, a.EmployeeID, AllocationMarker)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const employeeColumns = `e.id, e.user_id, e.employee_code, u.name, u.email, COALESCE(e.position, ''), e.salary, e.hourly_rate,
    e.hire_date, e.is_active, e.created_at, e.updated_at`

const employeeFrom = ` FROM employees e JOIN users u ON u.id = e.user_id`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.UserID, &e.EmployeeCode, &e.FullName, &e.Email, &e.Position, &e.Salary, &e.HourlyRate,
		&e.HireDate, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrEmployeeNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

// GetEmployee loads one employee.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+employeeFrom+` WHERE e.id = $1`, id))
}

// ListEmployees lists employees by name.
func (r *Repository) ListEmployees(ctx context.Context, includeInactive bool) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + employeeFrom
	if !includeInactive {
		query += ` WHERE e.is_active`
	}
	query += ` ORDER BY u.name, e.id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeactivateEmployee clears the active flag on the employee and the profile.
func (r *Repository) DeactivateEmployee(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `WITH emp AS (
    UPDATE employees SET is_active = FALSE, updated_at = NOW() WHERE id = $1 RETURNING user_id
)
UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id IN (SELECT user_id FROM emp)`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// AllocationTotals sums the salary allocation rows already recorded for date.
func (r *Repository) AllocationTotals(ctx context.Context, date string) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(e.amount), 0), COUNT(*)
FROM expenses e JOIN expense_categories c ON c.id = e.category_id
WHERE e.expense_date = $1::date AND c.type = 'PAYROLL' AND e.allocation_marker = $2`, date, AllocationMarker).Scan(&total, &count)
	return total, count, err
}
