// Package service implements tenant database resolution and dedicated-database
// provisioning on top of the control-plane, infrastructure, and schema-sync ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brokerstack/tenantdb/internal/adapter/otel"
	"github.com/brokerstack/tenantdb/internal/domain"
	"github.com/brokerstack/tenantdb/internal/domain/org"
	"github.com/brokerstack/tenantdb/internal/port/controlplane"
)

// DialFunc creates a connection pool bound to one tenant database URL.
type DialFunc func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error)

// Resolver maps organization ids to the correct database pool: the shared
// pool for most organizations, a cached dedicated pool for tenants whose
// database is ready.
type Resolver struct {
	shared  *pgxpool.Pool
	store   controlplane.Store
	cache   *PoolCache
	dial    DialFunc
	log     *slog.Logger
	metrics *otel.Metrics
}

// NewResolver creates a resolver. The dial function is injected so tests can
// observe pool construction.
func NewResolver(shared *pgxpool.Pool, store controlplane.Store, cache *PoolCache, dial DialFunc, log *slog.Logger) *Resolver {
	return &Resolver{
		shared: shared,
		store:  store,
		cache:  cache,
		dial:   dial,
		log:    log,
	}
}

// SetMetrics attaches resolution metrics instruments.
func (r *Resolver) SetMetrics(m *otel.Metrics) {
	r.metrics = m
}

// Shared returns the shared database pool.
func (r *Resolver) Shared() *pgxpool.Pool {
	return r.shared
}

// Resolve returns the pool for the given organization. An empty orgID returns
// the shared pool, covering anonymous and cross-tenant operations.
//
// Unknown organizations surface domain.ErrNotFound; organizations whose
// dedicated database is not ready (shared, provisioning, failed) fall back to
// the shared pool. A control-plane outage propagates as an error: without the
// routing record there is no safe database to pick.
func (r *Resolver) Resolve(ctx context.Context, orgID string) (*pgxpool.Pool, error) {
	if orgID == "" {
		return r.shared, nil
	}

	o, err := r.store.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("control plane: %w", err)
	}

	if !o.Dedicated() {
		if o.DatabaseStatus == org.DatabaseFailed {
			r.log.Warn("tenant database in failed state, routing to shared",
				"org_id", orgID)
		}
		return r.shared, nil
	}

	if pool, ok := r.cache.Get(orgID); ok {
		if r.metrics != nil {
			r.metrics.PoolCacheHits.Add(ctx, 1)
		}
		return pool, nil
	}
	if r.metrics != nil {
		r.metrics.PoolCacheMisses.Add(ctx, 1)
	}

	// Concurrent first-time resolutions may both dial; Put is last-writer-wins
	// and the stray pool drains on its own.
	pool, err := r.dial(ctx, o.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("dial tenant database for %s: %w", orgID, err)
	}
	r.cache.Put(orgID, pool)

	r.log.Info("tenant pool opened", "org_id", orgID)
	return pool, nil
}

// PoolCount returns the number of open dedicated tenant pools.
func (r *Resolver) PoolCount() int {
	return r.cache.Len()
}

// Close evicts and closes the organization's cached pool. The next Resolve
// dials a fresh one.
func (r *Resolver) Close(orgID string) {
	r.cache.Remove(orgID)
}

// CloseAll evicts and closes every cached tenant pool. The shared pool is not
// owned by the resolver and stays open.
func (r *Resolver) CloseAll() {
	r.cache.RemoveAll()
}
