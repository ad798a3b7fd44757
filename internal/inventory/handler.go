package inventory

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	loc     *time.Location
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, loc: loc}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.listItems)
	r.Post("/items", h.createItem)
	r.Get("/items/low-stock", h.lowStock)
	r.Get("/items/{id}", h.getItem)
	r.Put("/items/{id}", h.updateItem)
	r.Delete("/items/{id}", h.deactivateItem)
	r.Post("/items/{id}/stock-in", h.stockIn)
	r.Get("/usage", h.listUsage)
	r.Post("/usage", h.recordUsage)
}

type itemRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	InitialStock decimal.Decimal `json:"initial_stock"`
	CategoryID   *int64          `json:"category_id"`
	SupplierID   *int64          `json:"supplier_id"`
}

func (req itemRequest) input() ItemInput {
	return ItemInput{
		SKU:          req.SKU,
		Name:         req.Name,
		Unit:         req.Unit,
		CostPrice:    req.CostPrice,
		ReorderLevel: req.ReorderLevel,
		InitialStock: req.InitialStock,
		CategoryID:   req.CategoryID,
		SupplierID:   req.SupplierID,
	}
}

type usageRequest struct {
	ItemID     int64           `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UsageType  UsageType       `json:"usage_type"`
	MenuItemID *int64          `json:"menu_item_id"`
	OrderID    *int64          `json:"order_id"`
	Notes      string          `json:"notes"`
}

type stockInRequest struct {
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
	Notes         string           `json:"notes"`
	RecordExpense bool             `json:"record_expense"`
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	categoryID, err := httpx.QueryInt64(r, "category_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, err := httpx.QueryInt64(r, "limit")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListItems(r.Context(), ItemFilter{
		Search:          r.URL.Query().Get("search"),
		CategoryID:      categoryID,
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
		Limit:           int(limit),
	})
	if err != nil {
		h.fail(w, "list items", err)
		return
	}
	httpx.OK(w, http.StatusOK, items)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		h.fail(w, "low stock", err)
		return
	}
	httpx.OK(w, http.StatusOK, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.fail(w, "get item", err)
		return
	}
	httpx.OK(w, http.StatusOK, item)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	item, err := h.service.CreateItem(r.Context(), req.input())
	if err != nil {
		h.fail(w, "create item", err)
		return
	}
	httpx.OK(w, http.StatusCreated, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, "update item", err)
		return
	}
	httpx.OK(w, http.StatusOK, item)
}

func (h *Handler) deactivateItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeactivateItem(r.Context(), id); err != nil {
		h.fail(w, "deactivate item", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) stockIn(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req stockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	result, err := h.service.AddStock(r.Context(), StockInInput{
		ItemID:        id,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		Notes:         req.Notes,
		RecordExpense: req.RecordExpense,
		ActorID:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, "stock in", err)
		return
	}
	httpx.OK(w, http.StatusOK, result)
}

func (h *Handler) recordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	usage, err := h.service.RecordUsage(r.Context(), UsageInput{
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		Type:       req.UsageType,
		MenuItemID: req.MenuItemID,
		OrderID:    req.OrderID,
		Notes:      req.Notes,
		ActorID:    shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, "record usage", err)
		return
	}
	httpx.OK(w, http.StatusCreated, usage)
}

func (h *Handler) listUsage(w http.ResponseWriter, r *http.Request) {
	itemID, err := httpx.QueryInt64(r, "item_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
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
	usages, err := h.service.ListUsage(r.Context(), UsageFilter{
		ItemID: itemID,
		Reason: UsageType(r.URL.Query().Get("reason")),
		From:   from,
		To:     to,
	})
	if err != nil {
		h.fail(w, "list usage", err)
		return
	}
	httpx.OK(w, http.StatusOK, usages)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
