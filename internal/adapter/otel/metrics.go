package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tenantdb"

// Metrics holds all tenantdb metric instruments.
type Metrics struct {
	PoolCacheHits       metric.Int64Counter
	PoolCacheMisses     metric.Int64Counter
	ProvisionsStarted   metric.Int64Counter
	ProvisionsSucceeded metric.Int64Counter
	ProvisionsFailed    metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PoolCacheHits, err = meter.Int64Counter("tenantdb.pool_cache.hits",
		metric.WithDescription("Tenant pool cache hits"))
	if err != nil {
		return nil, err
	}

	m.PoolCacheMisses, err = meter.Int64Counter("tenantdb.pool_cache.misses",
		metric.WithDescription("Tenant pool cache misses"))
	if err != nil {
		return nil, err
	}

	m.ProvisionsStarted, err = meter.Int64Counter("tenantdb.provisions.started",
		metric.WithDescription("Provisioning runs started"))
	if err != nil {
		return nil, err
	}

	m.ProvisionsSucceeded, err = meter.Int64Counter("tenantdb.provisions.succeeded",
		metric.WithDescription("Provisioning runs succeeded"))
	if err != nil {
		return nil, err
	}

	m.ProvisionsFailed, err = meter.Int64Counter("tenantdb.provisions.failed",
		metric.WithDescription("Provisioning runs failed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
