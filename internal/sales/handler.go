package sales

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for orders and sales.
type Handler struct {
	logger  *slog.Logger
	service *Service
	loc     *time.Location
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, loc: loc}
}

// MountRoutes registers order and sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/complete", h.completeSale)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/sales", h.listSales)
	r.Get("/sales/{id}", h.getSale)
	r.Post("/sales/{id}/refund", h.refundSale)
	r.Post("/sales/{id}/cancel", h.cancelSale)
}

type orderRequest struct {
	TableNumber  string          `json:"table_number"`
	CustomerName string          `json:"customer_name"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	Discount     decimal.Decimal `json:"discount"`
	Notes        string          `json:"notes"`
	Items        []struct {
		MenuItemID *int64          `json:"menu_item_id"`
		Name       string          `json:"name"`
		Quantity   int             `json:"quantity"`
		UnitPrice  decimal.Decimal `json:"unit_price"`
		Notes      string          `json:"notes"`
	} `json:"items"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	in := OrderInput{
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		TaxPercent:   req.TaxPercent,
		Discount:     req.Discount,
		Notes:        req.Notes,
		ActorID:      shared.ActorFromContext(r.Context()),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, OrderItemInput{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			Notes:      it.Notes,
		})
	}
	order, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		h.fail(w, "create order", err)
		return
	}
	httpx.OK(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	httpx.OK(w, http.StatusOK, order)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.CancelOrder(r.Context(), id); err != nil {
		h.fail(w, "cancel order", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.fail(w, "delete order", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		PaymentMethod PaymentMethod `json:"payment_method"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	sale, err := h.service.CompleteSale(r.Context(), CompleteInput{
		OrderID:       id,
		PaymentMethod: req.PaymentMethod,
		ActorID:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, "complete sale", err)
		return
	}
	httpx.OK(w, http.StatusCreated, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	from, err := httpx.QueryDate(r, "from", h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to", h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	limit, err := httpx.QueryInt64(r, "limit")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListSales(r.Context(), SaleFilter{
		Status: SaleStatus(r.URL.Query().Get("status")),
		From:   from,
		To:     to,
		Limit:  int(limit),
	})
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.OK(w, http.StatusOK, sale)
}

func (h *Handler) refundSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.RefundSale(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "refund sale", err)
		return
	}
	httpx.OK(w, http.StatusOK, sale)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.CancelSale(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "cancel sale", err)
		return
	}
	httpx.OK(w, http.StatusOK, sale)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
