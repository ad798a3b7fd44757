// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// ErrUnauthorized is returned when the request carries no usable identity.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError lets domain errors pick their HTTP status.
type StatusError interface {
	HTTPStatus() int
}

// RespondError writes the failure envelope with a status derived from err.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var se StatusError
	switch {
	case errors.As(err, &se):
		status = se.HTTPStatus()
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrActorRequired):
		status = http.StatusUnauthorized
	}
	Fail(w, status, shared.UserMessage(err))
}
