package partners

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// Partner is a fixed-percentage stakeholder.
type Partner struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email,omitempty"`
	SharePercent decimal.Decimal `json:"share_percent"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Input carries partner fields.
type Input struct {
	Name         string `validate:"required,max=200"`
	Email        string `validate:"omitempty,email,max=200"`
	SharePercent decimal.Decimal
}

// DeletionPolicy for partners: deactivate only, past splits stay explainable.
const DeletionPolicy = shared.SoftDeletable

var (
	ErrPartnerNotFound = shared.NewRuleError(shared.ErrNotFound,
		"partners: partner not found", "Partner not found.")
	ErrInvalidShare = shared.NewRuleError(shared.ErrValidation,
		"partners: share must be between 0 and 100", "Share percent must be between 0 and 100.")
)
