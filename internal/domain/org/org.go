// Package org defines the organization domain model and its database routing state.
package org

import (
	"fmt"
	"strings"
	"time"

	"github.com/brokerstack/tenantdb/internal/domain"
)

// DatabaseStatus tracks where an organization's data lives and how far a
// dedicated-database provisioning run has progressed.
type DatabaseStatus string

const (
	// DatabaseShared means the organization lives on the shared database.
	DatabaseShared DatabaseStatus = "shared"
	// DatabaseProvisioning means infrastructure exists but the database is not
	// yet ready to receive traffic.
	DatabaseProvisioning DatabaseStatus = "provisioning"
	// DatabaseReady means the dedicated database is fully usable and routable.
	DatabaseReady DatabaseStatus = "ready"
	// DatabaseFailed means provisioning got far enough to create infrastructure
	// but the database never became usable. Routing stays on the shared database.
	DatabaseFailed DatabaseStatus = "failed"
)

// Organization is the control-plane record for one tenant.
type Organization struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	DatabaseStatus DatabaseStatus `json:"database_status"`
	DatabaseURL    string         `json:"database_url,omitempty"`
	InfraProjectID string         `json:"infra_project_id,omitempty"`
	ProvisionedAt  *time.Time     `json:"provisioned_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Dedicated reports whether traffic for this organization may be routed to its
// own database. Only a ready database with a persisted URL qualifies;
// provisioning and failed states fall back to the shared database.
func (o *Organization) Dedicated() bool {
	return o.DatabaseStatus == DatabaseReady && o.DatabaseURL != ""
}

// CreateRequest holds the fields required to create a new organization.
type CreateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Validate checks the create request fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Slug) == "" {
		return fmt.Errorf("%w: slug is required", domain.ErrValidation)
	}
	if strings.ContainsAny(r.Slug, " /\\") {
		return fmt.Errorf("%w: slug must not contain spaces or path separators", domain.ErrValidation)
	}
	return nil
}
