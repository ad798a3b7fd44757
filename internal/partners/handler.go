package partners

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
)

// Handler wires HTTP endpoints for partners.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs partners handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers partner routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
}

type partnerRequest struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	SharePercent decimal.Decimal `json:"share_percent"`
}

func (req partnerRequest) input() Input {
	return Input{Name: req.Name, Email: req.Email, SharePercent: req.SharePercent}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("include_inactive") == "true")
	if err != nil {
		h.fail(w, "list partners", err)
		return
	}
	httpx.OK(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get partner", err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	p, err := h.service.Create(r.Context(), req.input())
	if err != nil {
		h.fail(w, "create partner", err)
		return
	}
	httpx.OK(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req partnerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	p, err := h.service.Update(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, "update partner", err)
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.fail(w, "deactivate partner", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
