package costcategory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/backoffice/internal/platform/httpx"
)

// Handler exposes the category catalogue.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
}

// NewHandler constructs the category handler.
func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, resolver: resolver}
}

// MountRoutes registers category routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.resolve)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.deactivate)
}

type resolveRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.resolver.List(r.Context(), r.URL.Query().Get("include_inactive") == "true")
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	if out == nil {
		out = []Category{}
	}
	httpx.OK(w, http.StatusOK, out)
}

// resolve finds or creates a category; repeated calls return the same row.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	t, err := ParseExpenseType(req.Type)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.resolver.FindOrCreate(r.Context(), t, req.Name, req.Description)
	if err != nil {
		h.fail(w, "resolve", err)
		return
	}
	httpx.OK(w, http.StatusOK, c)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.resolver.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	httpx.OK(w, http.StatusOK, c)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.resolver.Deactivate(r.Context(), id); err != nil {
		h.fail(w, "deactivate", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error("costcategory "+op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
