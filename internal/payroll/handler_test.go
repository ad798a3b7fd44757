package payroll

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
)

func newPayrollRouter(store *memoryStore) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, NewService(store, nil), NewMaterializer(store, &payrollCategory{}, nil), nil).MountRoutes(r)
	return r
}

func request(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestEmployeeEndpoints(t *testing.T) {
	store := newMemoryStore()
	router := newPayrollRouter(store)

	body := `{"employee_code":"emp-07","full_name":"Hana","email":"hana@example.com","salary":"36000","hire_date":"2024-02-01"}`
	rec, env := request(t, router, http.MethodPost, "/employees", body)
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	require.Len(t, store.employees, 1)
	require.Equal(t, "EMP-07", store.employees[0].EmployeeCode)

	rec, _ = request(t, router, http.MethodPost, "/employees", body)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = request(t, router, http.MethodPost, "/employees", strings.Replace(body, "2024-02-01", "Feb 1", 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = request(t, router, http.MethodGet, "/employees/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = request(t, router, http.MethodDelete, "/employees/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, store.employees[0].IsActive)

	rec, _ = request(t, router, http.MethodGet, "/employees/9", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaterializeEndpointIsIdempotent(t *testing.T) {
	store := newMemoryStore(staff()...)
	router := newPayrollRouter(store)

	var first, second struct {
		Data MaterializeResult `json:"data"`
	}
	rec, _ := request(t, router, http.MethodPost, "/salaries/materialize?date=2024-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec, _ = request(t, router, http.MethodPost, "/salaries/materialize?date=2024-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	require.False(t, first.Data.AlreadyRecorded)
	require.True(t, second.Data.AlreadyRecorded)
	require.Equal(t, "2024-06-01", second.Data.Date)
	require.Equal(t, 3, second.Data.EmployeeCount)
	require.True(t, first.Data.TotalAmount.Equal(second.Data.TotalAmount))

	rec, _ = request(t, router, http.MethodPost, "/salaries/materialize?date=June", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
