// Package infra defines the port for the external cloud-infrastructure API
// that hosts dedicated tenant databases.
package infra

import "context"

// Provider is the port interface for creating and inspecting isolated database
// infrastructure. Implementations talk to an external provider and must honor
// context cancellation on every call.
type Provider interface {
	// CreateProject creates a new isolated project and returns its id.
	CreateProject(ctx context.Context, name string) (string, error)

	// CreateDatabase attaches a fresh Postgres instance to the project and
	// returns the provider's id for it.
	CreateDatabase(ctx context.Context, projectID string) (string, error)

	// DatabaseURL returns the generated connection string for the project's
	// database. Returns an empty string with a nil error while the provider
	// has not yet surfaced it (eventual consistency).
	DatabaseURL(ctx context.Context, projectID string) (string, error)

	// DeleteProject tears down a project. Used as a compensating step when
	// provisioning fails partway through.
	DeleteProject(ctx context.Context, projectID string) error
}
