package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dawa-pos/dawa/cmd/dawa/cli"
	"github.com/dawa-pos/dawa/internal/accounting/accounts"
	"github.com/dawa-pos/dawa/internal/accounting/expenses"
	"github.com/dawa-pos/dawa/internal/app"
	"github.com/dawa-pos/dawa/internal/auth"
	"github.com/dawa-pos/dawa/internal/groups"
	"github.com/dawa-pos/dawa/internal/inventory"
	"github.com/dawa-pos/dawa/internal/masterdata/products"
	"github.com/dawa-pos/dawa/internal/masterdata/suppliers"
	"github.com/dawa-pos/dawa/internal/observability"
	"github.com/dawa-pos/dawa/internal/platform/cache"
	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/procurement"
	"github.com/dawa-pos/dawa/internal/rbac"
	"github.com/dawa-pos/dawa/internal/reports"
	"github.com/dawa-pos/dawa/internal/sales"
	"github.com/dawa-pos/dawa/internal/sales/customers"
	"github.com/dawa-pos/dawa/internal/shared"
	"github.com/dawa-pos/dawa/internal/users"
	"github.com/dawa-pos/dawa/jobs"
	"github.com/dawa-pos/dawa/migrations"
)

const usage = `usage: dawa [serve | migrate | jobs <command>]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	shared.PhoneRegion = cfg.PhoneRegion

	command, args := "serve", os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args))
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command, slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, 1)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := migrations.Apply(ctx, pool, logger)
	if err != nil {
		return err
	}
	logger.Info("schema up to date", slog.Int("applied", len(applied)))
	return nil
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	opt := cache.AsynqOpt(redisOpts)
	client := jobs.NewClient(opt, cfg.JobSchedule())
	defer client.Close()
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	return cli.NewJobsCLI(client, inspector, os.Stdout, os.Stderr).Run(ctx, args)
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		return err
	}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	audit := metrics.Audited(shared.NewAuditLogger(pool))
	observe := metrics.ObserveConflict

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}
	authService := auth.NewService(auth.NewRepository(pool), tokens, auth.NewRevocationStore(redisClient), logger)
	rbacService := rbac.NewService(rbac.NewStore(pool))
	rbacMiddleware := rbac.Middleware{Logger: logger}

	asynqOpt := cache.AsynqOpt(redisOpts)
	jobClient := jobs.NewClient(asynqOpt, cfg.JobSchedule())
	defer jobClient.Close()
	inspector := asynq.NewInspector(asynqOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Ready: map[string]app.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		AuthMiddleware: auth.Middleware{Service: authService, Resolver: rbacService, Logger: logger},
		RBACMiddleware: rbacMiddleware,

		AuthHandler:        auth.NewHandler(logger, authService),
		AccountsHandler:    accounts.NewHandler(logger, accounts.NewService(accounts.NewRepository(pool, observe))),
		ExpensesHandler:    expenses.NewHandler(logger, expenses.NewService(expenses.NewRepository(pool))),
		CustomersHandler:   customers.NewHandler(logger, customers.NewService(customers.NewRepository(pool))),
		ProductsHandler:    products.NewHandler(logger, products.NewService(products.NewRepository(pool, observe), logger)),
		SuppliersHandler:   suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool, observe), audit, logger)),
		PurchasesHandler:   procurement.NewHandler(logger, procurement.NewService(procurement.NewRepository(pool, observe), audit, logger)),
		InventoryHandler:   inventory.NewHandler(logger, inventory.NewService(inventory.NewRepository(pool, observe), logger)),
		SalesHandler:       sales.NewHandler(logger, sales.NewService(sales.NewRepository(pool, observe), audit, logger)),
		UsersHandler:       users.NewHandler(logger, users.NewService(users.NewRepository(pool), logger)),
		GroupsHandler:      groups.NewHandler(logger, groups.NewService(groups.NewRepository(pool), logger)),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reports.NewService(reports.NewStore(pool), logger)),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
