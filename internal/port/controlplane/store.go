// Package controlplane defines the port for organization routing metadata.
package controlplane

import (
	"context"

	"github.com/brokerstack/tenantdb/internal/domain/org"
)

// Store is the port interface for reading and writing organization routing
// metadata in the always-available control-plane database.
type Store interface {
	GetOrganization(ctx context.Context, id string) (*org.Organization, error)
	ListOrganizations(ctx context.Context) ([]org.Organization, error)
	CreateOrganization(ctx context.Context, req org.CreateRequest) (*org.Organization, error)

	// OrganizationIDForUser resolves the organization a user belongs to.
	// Returns domain.ErrNotFound for unknown users and for users without an
	// organization.
	OrganizationIDForUser(ctx context.Context, userID string) (string, error)

	// MarkProvisioning records the infrastructure project backing the
	// organization's dedicated database before the database is usable.
	MarkProvisioning(ctx context.Context, id, infraProjectID string) error

	// MarkReady persists the dedicated database URL and flips routing to it.
	// Idempotent: calling it again with the same URL is a no-op.
	MarkReady(ctx context.Context, id, databaseURL string) error

	// MarkFailed records that provisioning did not produce a usable database.
	MarkFailed(ctx context.Context, id string) error
}
