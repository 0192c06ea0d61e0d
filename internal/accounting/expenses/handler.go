package expenses

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		req ListExpensesRequest
		err error
	)
	if req.AccountID, err = httpx.QueryInt64(r, "account_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if req.Date, err = httpx.QueryDateRange(r, "date"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	req.Search = strings.TrimSpace(r.URL.Query().Get("search"))
	list, err := h.service.List(r.Context(), httpx.Principal(r), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	e, err := h.service.Get(r.Context(), httpx.Principal(r), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	e, err := h.service.Create(r.Context(), httpx.Principal(r), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

// Replace requires the full representation.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var full CreateExpenseRequest
	if err := httpx.DecodeJSON(r, &full); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := httpx.Validate(full); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.update(w, r, id, UpdateExpenseRequest{
		AccountID: &full.AccountID,
		Date:      &full.Date,
		Details:   &full.Details,
		Amount:    &full.Amount,
	})
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req UpdateExpenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.update(w, r, id, req)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, id int64, req UpdateExpenseRequest) {
	e, err := h.service.Update(r.Context(), httpx.Principal(r), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), httpx.Principal(r), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
