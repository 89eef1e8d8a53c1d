package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brokerstack/tenantdb/internal/resilience"
	"github.com/brokerstack/tenantdb/internal/service"
)

func TestHealthHandlerReportsBreakerAndPools(t *testing.T) {
	// Port 1 is never a Postgres server, so the ping fails and health degrades.
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/controlplane")
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := service.NewResolver(pool, nil, service.NewPoolCache(), nil, log)
	breaker := resilience.NewBreaker(3, time.Minute)

	rec := httptest.NewRecorder()
	healthHandler(resolver, breaker)(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with the control plane unreachable", rec.Code)
	}

	var body struct {
		Status       string `json:"status"`
		ControlPlane string `json:"control_plane"`
		TenantPools  int    `json:"tenant_pools"`
		InfraBreaker string `json:"infra_breaker"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "degraded" || body.ControlPlane != "unreachable" {
		t.Fatalf("unexpected health %+v", body)
	}
	if body.TenantPools != 0 {
		t.Fatalf("tenant_pools = %d, want 0", body.TenantPools)
	}
	if body.InfraBreaker != "closed" {
		t.Fatalf("infra_breaker = %q, want closed", body.InfraBreaker)
	}
}
