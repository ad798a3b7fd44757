package expenses

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Status is the approval state of an expense.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusPaid     Status = "PAID"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid},
}

// CanTransition reports whether an expense may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DefaultCountedStatuses are the statuses included in cost aggregates unless
// the business policy says otherwise.
var DefaultCountedStatuses = []Status{StatusApproved, StatusPaid}

// Expense is a cost record.
type Expense struct {
	ID               int64                    `json:"id"`
	CategoryID       int64                    `json:"category_id"`
	CategoryName     string                   `json:"category_name"`
	CategoryType     costcategory.ExpenseType `json:"category_type"`
	Description      string                   `json:"description"`
	Amount           decimal.Decimal          `json:"amount"`
	TaxAmount        decimal.Decimal          `json:"tax_amount"`
	ExpenseDate      time.Time                `json:"expense_date"`
	Status           Status                   `json:"status"`
	Vendor           string                   `json:"vendor,omitempty"`
	EmployeeID       *int64                   `json:"employee_id,omitempty"`
	PurchaseRef      string                   `json:"purchase_ref,omitempty"`
	AllocationMarker string                   `json:"allocation_marker,omitempty"`
	CreatedBy        int64                    `json:"created_by"`
	ApprovedBy       *int64                   `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time               `json:"approved_at,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// Input carries the editable fields of an expense. CategoryID must already be
// resolved.
type Input struct {
	CategoryID  int64 `validate:"required,gt=0"`
	Description string `validate:"required,max=500"`
	Amount      decimal.Decimal
	TaxAmount   decimal.Decimal
	ExpenseDate time.Time `validate:"required"`
	Vendor      string    `validate:"max=200"`
	EmployeeID  *int64    `validate:"omitempty,gt=0"`
	PurchaseRef string    `validate:"max=100"`
	// Status defaults to PENDING. System postings create APPROVED rows.
	Status  Status `validate:"omitempty,oneof=PENDING APPROVED"`
	ActorID int64
}

// Filter narrows List. Zero values are ignored.
type Filter struct {
	CategoryID int64
	Type       costcategory.ExpenseType
	Status     Status
	From       time.Time
	To         time.Time
	EmployeeID int64
	Limit      int
}

// CategoryTotal is one line of the operational cost breakdown.
type CategoryTotal struct {
	CategoryID   int64                    `json:"category_id"`
	CategoryName string                   `json:"category_name"`
	Type         costcategory.ExpenseType `json:"type"`
	Amount       decimal.Decimal          `json:"amount"`
}

// DeletionPolicy for expenses: financial records are hard-deleted.
const DeletionPolicy = shared.Deletable

var (
	ErrExpenseNotFound = shared.NewRuleError(shared.ErrNotFound,
		"expenses: expense not found", "Expense not found.")
	ErrInvalidAmount = shared.NewRuleError(shared.ErrValidation,
		"expenses: amount must be greater than zero", "Amount must be greater than zero.")
	ErrInvalidTax = shared.NewRuleError(shared.ErrValidation,
		"expenses: tax amount must be >= 0", "Tax amount must not be negative.")
	ErrInvalidStatus = shared.NewRuleError(shared.ErrValidation,
		"expenses: invalid status", "Status must be PENDING, APPROVED, REJECTED or PAID.")
	ErrInvalidTransition = shared.NewRuleError(shared.ErrConflict,
		"expenses: status transition not allowed", "This status change is not allowed.")
	ErrNotEditable = shared.NewRuleError(shared.ErrConflict,
		"expenses: only pending expenses can be edited", "Only pending expenses can be edited.")
	ErrCategoryInactive = shared.NewRuleError(shared.ErrConflict,
		"expenses: category is inactive", "The selected category is no longer active.")
)
