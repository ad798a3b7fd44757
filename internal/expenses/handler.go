package expenses

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/costcategory"
	"github.com/kitchenledger/backoffice/internal/platform/httpx"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for the expense ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	loc     *time.Location
}

// NewHandler constructs expenses handler.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, loc: loc}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/status", h.updateStatus)
	r.Delete("/{id}", h.delete)
}

type expenseRequest struct {
	CategoryID   int64                    `json:"category_id"`
	CategoryType costcategory.ExpenseType `json:"category_type"`
	CategoryName string                   `json:"category_name"`
	Description  string                   `json:"description"`
	Amount       decimal.Decimal          `json:"amount"`
	TaxAmount    decimal.Decimal          `json:"tax_amount"`
	ExpenseDate  string                   `json:"expense_date"`
	Vendor       string                   `json:"vendor"`
	EmployeeID   *int64                   `json:"employee_id"`
}

func (h *Handler) input(r *http.Request, req expenseRequest) (Input, error) {
	date := shared.StartOfDay(time.Now(), h.loc)
	if req.ExpenseDate != "" {
		var err error
		if date, err = httpx.ParseDate(req.ExpenseDate, h.loc, "expense_date"); err != nil {
			return Input{}, err
		}
	}
	return Input{
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      req.Amount,
		TaxAmount:   req.TaxAmount,
		ExpenseDate: date,
		Vendor:      req.Vendor,
		EmployeeID:  req.EmployeeID,
		ActorID:     shared.ActorFromContext(r.Context()),
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f Filter
	var err error
	if f.CategoryID, err = httpx.QueryInt64(r, "category_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.EmployeeID, err = httpx.QueryInt64(r, "employee_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.From, err = httpx.QueryDate(r, "from", h.loc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.To, err = httpx.QueryDate(r, "to", h.loc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, err := httpx.QueryInt64(r, "limit")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	f.Limit = int(limit)
	f.Status = Status(q.Get("status"))
	f.Type = costcategory.ExpenseType(q.Get("type"))

	items, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "list expenses", err)
		return
	}
	httpx.OK(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get expense", err)
		return
	}
	httpx.OK(w, http.StatusOK, expense)
}

// create accepts either a category id or a category type (plus optional
// name) that is resolved on the fly.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	in, err := h.input(r, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var expense Expense
	if in.CategoryID == 0 && req.CategoryType != "" {
		expense, err = h.service.RecordCategorized(r.Context(), req.CategoryType, req.CategoryName, in)
	} else {
		expense, err = h.service.Create(r.Context(), in)
	}
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	httpx.OK(w, http.StatusCreated, expense)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	in, err := h.input(r, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update expense", err)
		return
	}
	httpx.OK(w, http.StatusOK, expense)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	expense, err := h.service.UpdateStatus(r.Context(), id, req.Status, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "update expense status", err)
		return
	}
	httpx.OK(w, http.StatusOK, expense)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete expense", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
