package shared

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrActorRequired is returned when a write path runs without an acting user.
	ErrActorRequired = errors.New("acting user required")
	// ErrInvalidRange indicates a date range whose end precedes its start.
	ErrInvalidRange = errors.New("invalid date range")
)

// UserMessager is implemented by errors that carry text meant for end users.
type UserMessager interface {
	UserMessage() string
}

// UserMessage converts err into text that can be shown to the user as is.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist."
	case errors.Is(err, ErrActorRequired):
		return "An authenticated user is required for this action."
	case errors.Is(err, ErrInvalidRange):
		return "The end date must not be before the start date."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request took too long. Please try again."
	}
	return "Something went wrong. Please try again."
}
