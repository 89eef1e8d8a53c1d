// Package postgres provides the control-plane connection pool, lazy tenant
// pool dialing, and the goose migration runner used for schema sync.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"

	"github.com/brokerstack/tenantdb/internal/config"
)

//go:embed migrations/control/*.sql migrations/tenant/*.sql
var migrations embed.FS

// NewPool creates the control-plane pgxpool and verifies it with a ping.
// The control plane must be reachable at startup; there is no safe way to
// route tenants without it.
func NewPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse control-plane url: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// DialTenant creates a pool bound to one dedicated tenant database. Connections
// are established lazily on first use; no ping is performed, so dialing a
// freshly provisioned database does not block resolution.
func DialTenant(ctx context.Context, databaseURL string, cfg config.TenantPool) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse tenant url: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create tenant pool: %w", err)
	}

	return pool, nil
}

// RunControlMigrations applies all pending control-plane migrations from the
// embedded SQL files.
func RunControlMigrations(ctx context.Context, databaseURL string) error {
	return runMigrations(ctx, databaseURL, "migrations/control")
}

// Syncer applies the tenant schema to a database via goose. It implements the
// schemasync port and doubles as the "schema-sync tool" run against every
// freshly provisioned tenant database.
type Syncer struct{}

// Apply brings the database behind databaseURL up to the current tenant schema.
// Goose tracks applied versions in the target database, so re-running after a
// partial failure is safe.
func (Syncer) Apply(ctx context.Context, databaseURL string) error {
	return runMigrations(ctx, databaseURL, "migrations/tenant")
}

// migrateMu serializes migration runs: goose's base FS and dialect are
// package-level globals, and concurrent provisioning runs each apply the
// tenant tree.
var migrateMu sync.Mutex

func runMigrations(ctx context.Context, databaseURL, dir string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations %s: %w", dir, err)
	}

	return nil
}
