// Package provision defines the result and error taxonomy of dedicated-database
// provisioning runs.
package provision

import (
	"errors"
	"fmt"
)

// Result describes a successfully provisioned dedicated database.
type Result struct {
	OrganizationID string `json:"organization_id"`
	InfraProjectID string `json:"infra_project_id"`
	DatabaseURL    string `json:"database_url"`
}

// ErrNotYetAvailable indicates the infrastructure provider accepted the
// provisioning requests but has not surfaced the database connection string
// within the polling deadline. Retrying later is the correct remedy, unlike
// InfraError which signals a configuration or quota problem.
var ErrNotYetAvailable = errors.New("database created but connection string not yet available")

// InfraError wraps an explicit error from the infrastructure provider.
// It is terminal for the current run and is not retried automatically.
type InfraError struct {
	Op  string // the provider operation that failed, e.g. "create project"
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("infrastructure %s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error { return e.Err }

// SchemaSyncError indicates the dedicated database exists and is reachable but
// applying the tenant schema to it failed. The organization is left in the
// failed state and keeps routing to the shared database until a retry succeeds.
type SchemaSyncError struct {
	Err error
}

func (e *SchemaSyncError) Error() string {
	return fmt.Sprintf("tenant schema sync: %v", e.Err)
}

func (e *SchemaSyncError) Unwrap() error { return e.Err }

// Retryable reports whether err represents a condition where the caller should
// retry provisioning after a delay rather than treat it as terminal.
func Retryable(err error) bool {
	if errors.Is(err, ErrNotYetAvailable) {
		return true
	}
	var syncErr *SchemaSyncError
	return errors.As(err, &syncErr)
}
