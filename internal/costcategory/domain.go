package costcategory

import (
	"fmt"
	"strings"
	"time"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// ExpenseType classifies cost records for aggregation.
type ExpenseType string

const (
	TypeOperational ExpenseType = "OPERATIONAL"
	TypeStock       ExpenseType = "STOCK"
	TypePayroll     ExpenseType = "PAYROLL"
	TypeUtilities   ExpenseType = "UTILITIES"
	TypeRent        ExpenseType = "RENT"
	TypeMarketing   ExpenseType = "MARKETING"
	TypeMaintenance ExpenseType = "MAINTENANCE"
	TypeInsurance   ExpenseType = "INSURANCE"
	TypeTaxes       ExpenseType = "TAXES"
	TypeOther       ExpenseType = "OTHER"
)

// AllTypes lists every supported ExpenseType in display order.
var AllTypes = []ExpenseType{
	TypeOperational, TypeStock, TypePayroll, TypeUtilities, TypeRent,
	TypeMarketing, TypeMaintenance, TypeInsurance, TypeTaxes, TypeOther,
}

// canonicalNames is the single registry of category names per type. Call
// sites ask for a type and get the same row back, whoever created it first.
var canonicalNames = map[ExpenseType]string{
	TypeOperational: "Operational Expenses",
	TypeStock:       "Stock Purchases",
	TypePayroll:     "Employee Salaries",
	TypeUtilities:   "Utilities",
	TypeRent:        "Rent",
	TypeMarketing:   "Marketing",
	TypeMaintenance: "Maintenance",
	TypeInsurance:   "Insurance",
	TypeTaxes:       "Taxes",
	TypeOther:       "Other Expenses",
}

// Valid reports whether t is a known type.
func (t ExpenseType) Valid() bool {
	_, ok := canonicalNames[t]
	return ok
}

// CanonicalName returns the registry name for t.
func CanonicalName(t ExpenseType) string {
	return canonicalNames[t]
}

// ParseExpenseType parses a case-insensitive type name.
func ParseExpenseType(s string) (ExpenseType, error) {
	t := ExpenseType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Category is a named cost category. Its name is globally unique and its
// type is never changed once created.
type Category struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Type        ExpenseType `json:"type"`
	Description string      `json:"description,omitempty"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DeletionPolicy for cost categories: rows are deactivated, never removed.
const DeletionPolicy = shared.SoftDeletable

var (
	// ErrInvalidType indicates an unknown expense type.
	ErrInvalidType = shared.NewRuleError(shared.ErrValidation,
		"costcategory: invalid expense type", "Unknown expense category type.")
	// ErrTypeMismatch indicates the name already belongs to another type.
	ErrTypeMismatch = shared.NewRuleError(shared.ErrConflict,
		"costcategory: category exists with a different type", "A category with this name already exists under another type.")
	// ErrCategoryNotFound indicates a missing category.
	ErrCategoryNotFound = shared.NewRuleError(shared.ErrNotFound,
		"costcategory: category not found", "Expense category not found.")
	// ErrCategoryInactive indicates a deactivated, non-canonical category.
	ErrCategoryInactive = shared.NewRuleError(shared.ErrConflict,
		"costcategory: category is inactive", "This expense category has been deactivated.")
)
