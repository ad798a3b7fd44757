package payroll

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
)

// Handler wires HTTP endpoints for employees and salary allocation.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	materializer *Materializer
	loc          *time.Location
}

// NewHandler constructs payroll handler.
func NewHandler(logger *slog.Logger, service *Service, materializer *Materializer, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, materializer: materializer, loc: loc}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/employees", h.list)
	r.Post("/employees", h.create)
	r.Get("/employees/{id}", h.get)
	r.Put("/employees/{id}", h.update)
	r.Delete("/employees/{id}", h.deactivate)
	r.Post("/salaries/materialize", h.materialize)
}

type employeeRequest struct {
	EmployeeCode string           `json:"employee_code"`
	FullName     string           `json:"full_name"`
	Email        string           `json:"email"`
	Position     string           `json:"position"`
	Salary       decimal.Decimal  `json:"salary"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate"`
	HireDate     string           `json:"hire_date"`
}

func (h *Handler) input(req employeeRequest) (EmployeeInput, error) {
	hired, err := httpx.ParseDate(req.HireDate, h.loc, "hire_date")
	if err != nil {
		return EmployeeInput{}, err
	}
	return EmployeeInput{
		EmployeeCode: req.EmployeeCode,
		FullName:     req.FullName,
		Email:        req.Email,
		Position:     req.Position,
		Salary:       req.Salary,
		HourlyRate:   req.HourlyRate,
		HireDate:     hired,
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context(), r.URL.Query().Get("include_inactive") == "true")
	if err != nil {
		h.fail(w, "list employees", err)
		return
	}
	httpx.OK(w, http.StatusOK, employees)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	employee, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		h.fail(w, "get employee", err)
		return
	}
	httpx.OK(w, http.StatusOK, employee)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	in, err := h.input(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	employee, err := h.service.CreateEmployee(r.Context(), in)
	if err != nil {
		h.fail(w, "create employee", err)
		return
	}
	httpx.OK(w, http.StatusCreated, employee)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req employeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	in, err := h.input(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	employee, err := h.service.UpdateEmployee(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update employee", err)
		return
	}
	httpx.OK(w, http.StatusOK, employee)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeactivateEmployee(r.Context(), id); err != nil {
		h.fail(w, "deactivate employee", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) materialize(w http.ResponseWriter, r *http.Request) {
	date, err := httpx.QueryDate(r, "date", h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if date.IsZero() {
		date = time.Now()
	}
	res, err := h.materializer.MaterializeDailySalaries(r.Context(), date)
	if err != nil {
		h.fail(w, "materialize salaries", err)
		return
	}
	httpx.OK(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
