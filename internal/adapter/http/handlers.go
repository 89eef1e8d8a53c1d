package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brokerstack/tenantdb/internal/domain"
	"github.com/brokerstack/tenantdb/internal/domain/org"
	"github.com/brokerstack/tenantdb/internal/domain/provision"
	"github.com/brokerstack/tenantdb/internal/port/controlplane"
	"github.com/brokerstack/tenantdb/internal/service"
)

const maxBodySize = 64 << 10

// Handlers bundles the services exposed over HTTP.
type Handlers struct {
	Store       controlplane.Store
	Resolver    *service.Resolver
	Provisioner *service.Provisioner
}

// MountRoutes registers all API routes on the router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/organizations", func(r chi.Router) {
		r.Get("/", h.listOrganizations)
		r.Post("/", h.createOrganization)
		r.Get("/{id}/database", h.getDatabaseRouting)
		r.Post("/{id}/database", h.provisionDatabase)
		r.Delete("/{id}/connection", h.closeConnection)
	})
}

func (h *Handlers) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Store.ListOrganizations(r.Context())
	if err != nil {
		writeDomainError(w, err, "organizations not found")
		return
	}
	if orgs == nil {
		orgs = []org.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *Handlers) createOrganization(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[org.CreateRequest](w, r, maxBodySize)
	if !ok {
		return
	}

	o, err := h.Store.CreateOrganization(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

type routingResponse struct {
	OrganizationID string             `json:"organization_id"`
	DatabaseStatus org.DatabaseStatus `json:"database_status"`
	Dedicated      bool               `json:"dedicated"`
	InfraProjectID string             `json:"infra_project_id,omitempty"`
	ProvisionedAt  *time.Time         `json:"provisioned_at,omitempty"`
}

func (h *Handlers) getDatabaseRouting(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	o, err := h.Store.GetOrganization(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}

	writeJSON(w, http.StatusOK, routingResponse{
		OrganizationID: o.ID,
		DatabaseStatus: o.DatabaseStatus,
		Dedicated:      o.Dedicated(),
		InfraProjectID: o.InfraProjectID,
		ProvisionedAt:  o.ProvisionedAt,
	})
}

type provisionResponse struct {
	Success        bool   `json:"success"`
	DatabaseURL    string `json:"database_url,omitempty"`
	InfraProjectID string `json:"infra_project_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Retryable      bool   `json:"retryable,omitempty"`
}

func (h *Handlers) provisionDatabase(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	res, err := h.Provisioner.Provision(r.Context(), id)
	if err != nil {
		writeProvisionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, provisionResponse{
		Success:        true,
		DatabaseURL:    res.DatabaseURL,
		InfraProjectID: res.InfraProjectID,
	})
}

// writeProvisionError maps the provisioning error taxonomy to status codes so
// operators can tell retryable conditions from configuration problems.
func writeProvisionError(w http.ResponseWriter, err error) {
	var infraErr *provision.InfraError
	var syncErr *provision.SchemaSyncError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "organization not found")
	case errors.Is(err, provision.ErrNotYetAvailable):
		writeJSON(w, http.StatusServiceUnavailable, provisionResponse{
			Success:   false,
			Reason:    "database created but connection string not yet available, try again shortly",
			Retryable: true,
		})
	case errors.As(err, &infraErr):
		writeJSON(w, http.StatusBadGateway, provisionResponse{
			Success: false,
			Reason:  infraErr.Error(),
		})
	case errors.As(err, &syncErr):
		writeJSON(w, http.StatusInternalServerError, provisionResponse{
			Success:   false,
			Reason:    syncErr.Error(),
			Retryable: true,
		})
	default:
		writeDomainError(w, err, "organization not found")
	}
}

func (h *Handlers) closeConnection(w http.ResponseWriter, r *http.Request) {
	h.Resolver.Close(urlParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
