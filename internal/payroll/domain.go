package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// AllocationMarker tags expense rows written by the materializer. The
// partial unique index on (expense_date, employee_id) covers only these rows.
const AllocationMarker = "DAILY_SALARY"

// AllocationDescription is the human readable prefix of allocation rows.
const AllocationDescription = "Daily salary allocation"

// DefaultSalaryDivisor converts a monthly salary to a daily allocation.
const DefaultSalaryDivisor = 30

// Employee extends a user profile with payroll data.
type Employee struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	EmployeeCode string           `json:"employee_code"`
	FullName     string           `json:"full_name"`
	Email        string           `json:"email"`
	Position     string           `json:"position"`
	Salary       decimal.Decimal  `json:"salary"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate,omitempty"`
	HireDate     time.Time        `json:"hire_date"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// EmployeeInput carries fields to create or update an employee together with
// the user profile it extends.
type EmployeeInput struct {
	EmployeeCode string `validate:"required,max=32"`
	FullName     string `validate:"required,max=200"`
	Email        string `validate:"required,email,max=200"`
	Position     string `validate:"max=100"`
	Salary       decimal.Decimal
	HourlyRate   *decimal.Decimal
	HireDate     time.Time `validate:"required"`
}

// Allocation is one salary expense row for one employee and day.
type Allocation struct {
	EmployeeID   int64
	EmployeeName string
	Amount       decimal.Decimal
}

// MaterializeResult reports what MaterializeDailySalaries did.
type MaterializeResult struct {
	Date            string          `json:"date"`
	AlreadyRecorded bool            `json:"already_recorded"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	EmployeeCount   int             `json:"employee_count"`
}

// DeletionPolicy for employees: deactivate only.
const DeletionPolicy = shared.SoftDeletable

var (
	ErrEmployeeNotFound = shared.NewRuleError(shared.ErrNotFound,
		"payroll: employee not found", "Employee not found.")
	ErrInvalidSalary = shared.NewRuleError(shared.ErrValidation,
		"payroll: salary must be >= 0", "Salary must not be negative.")
	ErrDuplicateEmployee = shared.NewRuleError(shared.ErrConflict,
		"payroll: employee code or email already exists", "An employee with this code or email already exists.")
)
