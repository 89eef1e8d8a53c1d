// Package schemasync defines the port for bringing a fresh tenant database up
// to the current application schema.
package schemasync

import "context"

// Syncer applies the tenant schema to the database behind databaseURL.
// Implementations must be idempotent so a failed provisioning run can be
// retried against the same database.
type Syncer interface {
	Apply(ctx context.Context, databaseURL string) error
}
