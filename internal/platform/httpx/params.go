package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// URLInt64 parses a positive integer route parameter.
func URLInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, &shared.ValidationError{Fields: map[string]string{name: "is invalid"}}
	}
	return v, nil
}

// QueryInt64 parses an optional integer query parameter; missing yields 0.
func QueryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &shared.ValidationError{Fields: map[string]string{name: "is invalid"}}
	}
	return v, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter in loc.
func QueryDate(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return ParseDate(raw, loc, name)
}

// ParseDate parses a YYYY-MM-DD value in loc.
func ParseDate(raw string, loc *time.Location, field string) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(shared.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, &shared.ValidationError{Fields: map[string]string{field: fmt.Sprintf("must be a date (%s)", shared.DateLayout)}}
	}
	return t, nil
}
