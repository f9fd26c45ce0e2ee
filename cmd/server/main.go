// Package main is the entry point for the formdesk API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formdesk/internal/config"
	"formdesk/internal/domain/auth"
	"formdesk/internal/domain/catalog"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/opname"
	"formdesk/internal/domain/purchase"
	"formdesk/internal/domain/reports"
	"formdesk/internal/domain/sales"
	"formdesk/internal/domain/submit"
	"formdesk/internal/infrastructure/cache"
	v1 "formdesk/internal/infrastructure/http/v1"
	"formdesk/internal/infrastructure/http/v1/handlers"
	"formdesk/internal/infrastructure/session"
	"formdesk/internal/infrastructure/upstream"
	"formdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting formdesk server", "env", cfg.AppEnv, "backend", cfg.APIBaseURL)

	// --- Backend client ---
	client := upstream.New(upstream.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.UpstreamTimeout}, nil)

	// --- Shared reference snapshots (optional) ---
	var (
		snapshots    catalog.SnapshotStore
		redisStore   *cache.Snapshots
		healthChecks = map[string]handlers.Pinger{}
	)
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalw("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer func() { _ = rdb.Close() }()
		redisStore = cache.NewSnapshots(rdb)
		snapshots = redisStore
		healthChecks["redis"] = redisStore
		log.Infow("reference snapshot cache enabled", "addr", cfg.RedisAddr)
	}

	// --- Reference data ---
	registry := catalog.NewRegistry(client, snapshots, catalog.RegistryConfig{
		TTL:          cfg.ReferenceTTL,
		FetchTimeout: cfg.UpstreamTimeout,
		Parents:      catalog.ParentFilter{Status: "COMPLETED", Limit: cfg.ParentRequestLimit},
	})
	if redisStore != nil {
		redisStore.OnInvalidate(registry.Invalidate)
		if err := redisStore.Start(ctx); err != nil {
			log.Fatalw("failed to subscribe to reference invalidations", "error", err)
		}
		defer redisStore.Stop()
	}

	// --- Identity ---
	parser := auth.NewTokenParser(cfg.JWTSecret)
	if !parser.Verifies() {
		log.Warn("JWT_SECRET not set; bearer tokens are read without signature verification")
	}
	refresher := auth.NewTokenRefresher(client, parser, cfg.TokenRefreshSkew)

	// --- Draft sessions ---
	sessionCfg := session.DefaultConfig()
	sessionCfg.IdleTimeout = cfg.DraftTTL
	purchaseDrafts := session.NewManager[*purchase.Form]("purchase-requests", sessionCfg, log)
	defer purchaseDrafts.Close()
	salesDrafts := session.NewManager[*sales.Form]("sales-orders", sessionCfg, log)
	defer salesDrafts.Close()
	opnameDrafts := session.NewManager[*opname.Form]("stock-opnames", sessionCfg, log)
	defer opnameDrafts.Close()

	// --- Submission ---
	purchaseSubmit := submit.New[purchase.Payload](refresher, cfg.ValidationSummaryLimit)
	purchaseSubmit.OnBeforeSubmit(submit.AuditPayload[purchase.Payload])
	purchaseSubmit.OnSuccess(func(ctx context.Context, _ forms.Receipt) error {
		// A new request consumes budget of its parent.
		registry.Invalidate(catalog.KindParentRequests)
		if snapshots != nil {
			return snapshots.Invalidate(ctx, catalog.KindParentRequests)
		}
		return nil
	})
	salesSubmit := submit.New[sales.Payload](refresher, cfg.ValidationSummaryLimit)
	salesSubmit.OnBeforeSubmit(submit.AuditPayload[sales.Payload])
	opnameSubmit := submit.New[opname.Payload](refresher, cfg.ValidationSummaryLimit)
	opnameSubmit.OnBeforeSubmit(submit.AuditPayload[opname.Payload])

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		Development:    cfg.IsDevelopment(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TokenParser:    parser,
		Refresher:      refresher,
		Catalog:        registry,
		Records:        client,

		PurchaseDeps:   purchase.Deps{Catalog: registry, Stock: client, Backend: client, StockTimeout: cfg.StockLookupTimeout},
		PurchaseDrafts: purchaseDrafts,
		PurchaseSubmit: purchaseSubmit,

		SalesDeps:   sales.Deps{Catalog: registry, Backend: client},
		SalesDrafts: salesDrafts,
		SalesSubmit: salesSubmit,

		OpnameDeps:   opname.Deps{Catalog: registry, Stock: client, Backend: client, StockTimeout: cfg.StockLookupTimeout},
		OpnameDrafts: opnameDrafts,
		OpnameSubmit: opnameSubmit,

		Reports:      reports.NewService(client),
		HealthChecks: healthChecks,
		SummaryLimit: cfg.ValidationSummaryLimit,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", cfg.AppAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Errorw("server failed", "error", err)
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
