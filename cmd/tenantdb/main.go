package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	tdbhttp "github.com/brokerstack/tenantdb/internal/adapter/http"
	"github.com/brokerstack/tenantdb/internal/adapter/otel"
	"github.com/brokerstack/tenantdb/internal/adapter/postgres"
	"github.com/brokerstack/tenantdb/internal/adapter/railway"
	"github.com/brokerstack/tenantdb/internal/adapter/ristretto"
	"github.com/brokerstack/tenantdb/internal/config"
	"github.com/brokerstack/tenantdb/internal/logger"
	"github.com/brokerstack/tenantdb/internal/resilience"
	"github.com/brokerstack/tenantdb/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"cp_max_conns", cfg.ControlPlane.MaxConns,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Control plane ---
	controlPool, err := postgres.NewPool(ctx, cfg.ControlPlane)
	if err != nil {
		return fmt.Errorf("control plane: %w", err)
	}
	defer controlPool.Close()
	slog.Info("control plane connected")

	if err := postgres.RunControlMigrations(ctx, cfg.ControlPlane.URL); err != nil {
		return fmt.Errorf("control plane migrations: %w", err)
	}
	slog.Info("control plane migrations applied")

	routingCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("routing cache: %w", err)
	}
	defer routingCache.Close()

	store := service.NewCachedStore(postgres.NewStore(controlPool), routingCache, cfg.Cache.RoutingTTL)

	// --- Infrastructure provider ---
	infraClient := railway.NewClient(cfg.Infra.URL, cfg.Infra.Token)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	infraClient.SetBreaker(breaker)

	// --- Services ---
	dial := func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
		return postgres.DialTenant(ctx, databaseURL, cfg.TenantPool)
	}
	resolver := service.NewResolver(controlPool, store, service.NewPoolCache(), dial, log)
	resolver.SetMetrics(metrics)
	defer resolver.CloseAll()

	provisioner := service.NewProvisioner(store, infraClient, postgres.Syncer{}, cfg.Provisioner, log)
	provisioner.SetMetrics(metrics)

	// --- HTTP ---
	handlers := &tdbhttp.Handlers{
		Store:       store,
		Resolver:    resolver,
		Provisioner: provisioner,
	}

	r := chi.NewRouter()

	r.Use(tdbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tdbhttp.RequestID)
	r.Use(tdbhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(3 * time.Minute))
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	r.Get("/health", healthHandler(resolver, breaker))

	tdbhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports control-plane reachability, tenant pool usage, and the
// infrastructure API breaker state.
func healthHandler(resolver *service.Resolver, breaker *resilience.Breaker) http.HandlerFunc {
	type healthStatus struct {
		Status       string `json:"status"`
		ControlPlane string `json:"control_plane"`
		TenantPools  int    `json:"tenant_pools"`
		InfraBreaker string `json:"infra_breaker"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", ControlPlane: "ok", InfraBreaker: breaker.State()}

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := resolver.Shared().Ping(pingCtx); err != nil {
			status.Status = "degraded"
			status.ControlPlane = "unreachable"
		}
		status.TenantPools = resolver.PoolCount()

		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
