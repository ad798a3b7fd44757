package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/backoffice/internal/shared"
)

type teapot struct{}

func (teapot) Error() string { return "teapot" }
func (teapot) HTTPStatus() int { return http.StatusTeapot }
func (teapot) UserMessage() string { return "No coffee here." }

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound},
		{&shared.ValidationError{Fields: map[string]string{"amount": "is required"}}, http.StatusBadRequest},
		{shared.ErrInvalidRange, http.StatusBadRequest},
		{shared.NewRuleError(shared.ErrConflict, "expense: not pending", "Only pending expenses can be edited."), http.StatusConflict},
		{shared.ErrActorRequired, http.StatusUnauthorized},
		{teapot{}, http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
	}

	rec := httptest.NewRecorder()
	RespondError(rec, teapot{})
	require.JSONEq(t, `{"success":false,"error":"No coffee here."}`, rec.Body.String())
}

func TestParams(t *testing.T) {
	r := chi.NewRouter()
	var got int64
	var gotErr error
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = URLInt64(r, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/17", nil))
	require.NoError(t, gotErr)
	require.Equal(t, int64(17), got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/-3", nil))
	require.ErrorIs(t, gotErr, shared.ErrValidation)

	req := httptest.NewRequest(http.MethodGet, "/?employee_id=5&date=2024-06-10&bad=x", nil)
	v, err := QueryInt64(req, "employee_id")
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
	_, err = QueryInt64(req, "bad")
	require.ErrorIs(t, err, shared.ErrValidation)
	v, err = QueryInt64(req, "missing")
	require.NoError(t, err)
	require.Zero(t, v)

	wib := time.FixedZone("WIB", 7*3600)
	d, err := QueryDate(req, "date", wib)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, wib), d)
	d, err = QueryDate(req, "missing", wib)
	require.NoError(t, err)
	require.True(t, d.IsZero())
	_, err = ParseDate("10/06/2024", nil, "date")
	require.ErrorIs(t, err, shared.ErrValidation)
}
