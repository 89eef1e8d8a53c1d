package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the controlplane.Store port against the control-plane
// database.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given control-plane pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
