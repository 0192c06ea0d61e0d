package reports

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/shared"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler exposes report endpoints. Every report accepts date_after and
// date_before; summary and sales-by-customer also honour ?format=csv and the
// breakdown ?format=xlsx.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/sales-by-customer", h.SalesByCustomer)
	r.Get("/products", h.Products)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.QueryDateRange(r, "date")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), httpx.Principal(r), rng)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		httpx.JSON(w, http.StatusOK, summary)
	case "csv":
		h.attach(w, "summary.csv", contentTypeCSV, func(buf *bytes.Buffer) error {
			return WriteSummaryCSV(buf, summary)
		})
	default:
		httpx.RespondError(w, h.logger, shared.NewValidationError("format", "must be one of json, csv"))
	}
}

func (h *Handler) SalesByCustomer(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.QueryDateRange(r, "date")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rows, err := h.service.SalesByCustomer(r.Context(), httpx.Principal(r), rng)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		if rows == nil {
			rows = []CustomerSales{}
		}
		httpx.JSON(w, http.StatusOK, rows)
	case "csv":
		h.attach(w, "sales-by-customer.csv", contentTypeCSV, func(buf *bytes.Buffer) error {
			return WriteSalesByCustomerCSV(buf, rows)
		})
	case "xlsx":
		h.attach(w, "sales-by-customer.xlsx", contentTypeXLSX, func(buf *bytes.Buffer) error {
			return WriteSalesByCustomerXLSX(buf, rows)
		})
	default:
		httpx.RespondError(w, h.logger, shared.NewValidationError("format", "must be one of json, csv, xlsx"))
	}
}

func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	rng, err := httpx.QueryDateRange(r, "date")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	limit, err := httpx.QueryInt64(r, "limit")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var n int
	if limit != nil {
		n = int(*limit)
	}
	rows, err := h.service.ProductSales(r.Context(), httpx.Principal(r), rng, n)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if rows == nil {
		rows = []ProductSales{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// attach renders into a buffer first so a failed export still yields a
// proper error response.
func (h *Handler) attach(w http.ResponseWriter, filename, contentType string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
