package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/accounting/expenses"
	"github.com/dawa-pos/dawa/internal/auth"
	"github.com/dawa-pos/dawa/internal/groups"
	"github.com/dawa-pos/dawa/internal/inventory"
	"github.com/dawa-pos/dawa/internal/masterdata/products"
	"github.com/dawa-pos/dawa/internal/masterdata/suppliers"
	"github.com/dawa-pos/dawa/internal/observability"
	"github.com/dawa-pos/dawa/internal/platform/httpx"
	"github.com/dawa-pos/dawa/internal/procurement"
	"github.com/dawa-pos/dawa/internal/rbac"
	"github.com/dawa-pos/dawa/internal/reports"
	"github.com/dawa-pos/dawa/internal/sales"
	"github.com/dawa-pos/dawa/internal/sales/customers"
	"github.com/dawa-pos/dawa/internal/shared"
	"github.com/dawa-pos/dawa/internal/users"
	"github.com/dawa-pos/dawa/jobs"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router. AuthHandler
// is required; other nil handlers are left unmounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	// Ready lists the dependencies checked by /readyz.
	Ready map[string]Pinger

	AuthMiddleware auth.Middleware
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	AccountsHandler    *accounts.Handler
	ExpensesHandler    *expenses.Handler
	CustomersHandler   *customers.Handler
	ProductsHandler    *products.Handler
	SuppliersHandler   *suppliers.Handler
	PurchasesHandler   *procurement.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	UsersHandler       *users.Handler
	GroupsHandler      *groups.Handler
	PermissionsHandler *rbac.PermissionsHandler
	ReportsHandler     *reports.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router serving the JSON API under /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(params.Ready, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.ExpensesHandler != nil {
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
			r.Route("/pack-sizes", params.ProductsHandler.MountPackSizeRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.PurchasesHandler != nil {
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.GroupsHandler != nil {
			r.Route("/groups", params.GroupsHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAll(shared.PermJobsRun))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}

func readyHandler(checks map[string]Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		ok := true
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				ok = false
				status[name] = "unavailable"
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				}
				continue
			}
			status[name] = "ok"
		}
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		httpx.JSON(w, code, status)
	}
}
