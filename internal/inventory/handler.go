package inventory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
)

// Handler wires inventory HTTP routes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes. Items are created with purchases only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.replace)
	r.Patch("/{id}", h.patch)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		f   ListFilter
		err error
	)
	if f.ProductID, err = httpx.QueryInt64(r, "product_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.PurchaseID, err = httpx.QueryInt64(r, "purchase_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.ExpiringBefore, err = httpx.QueryDate(r, "expiring_before"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	f.BatchNumber = strings.TrimSpace(r.URL.Query().Get("batch_number"))
	items, err := h.service.List(r.Context(), httpx.Principal(r), f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	it, err := h.service.Get(r.Context(), httpx.Principal(r), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

// replace requires every writable field; product_id defaults to the stored one.
func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	cur, err := h.service.Get(r.Context(), httpx.Principal(r), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	form := Form{ProductID: cur.ProductID}
	if partial {
		form = FormOf(cur)
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	it, err := h.service.Update(r.Context(), httpx.Principal(r), id, form)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}
