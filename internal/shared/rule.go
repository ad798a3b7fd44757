package shared

import "errors"

// ErrConflict classifies errors caused by the current state of the data.
var ErrConflict = errors.New("conflict")

// RuleError is a sentinel domain error that carries a user-facing message
// and a classification (ErrValidation, ErrConflict, ErrNotFound).
type RuleError struct {
	Kind error
	Msg  string
	User string
}

// NewRuleError constructs a RuleError.
func NewRuleError(kind error, msg, user string) *RuleError {
	return &RuleError{Kind: kind, Msg: msg, User: user}
}

func (e *RuleError) Error() string { return e.Msg }

// Unwrap exposes the classification to errors.Is.
func (e *RuleError) Unwrap() error { return e.Kind }

// UserMessage is shown to the user verbatim.
func (e *RuleError) UserMessage() string { return e.User }
