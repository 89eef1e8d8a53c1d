package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"github.com/brokerstack/tenantdb/internal/adapter/otel"
	"github.com/brokerstack/tenantdb/internal/config"
	"github.com/brokerstack/tenantdb/internal/domain/provision"
	"github.com/brokerstack/tenantdb/internal/port/controlplane"
	"github.com/brokerstack/tenantdb/internal/port/infra"
	"github.com/brokerstack/tenantdb/internal/port/schemasync"
)

// Provisioner creates dedicated databases for organizations end-to-end:
// infrastructure project, Postgres instance, connection-string retrieval, and
// tenant schema sync. An organization becomes routable only after the schema
// is fully applied.
type Provisioner struct {
	store   controlplane.Store
	infra   infra.Provider
	schema  schemasync.Syncer
	cfg     config.Provisioner
	log     *slog.Logger
	metrics *otel.Metrics
}

// NewProvisioner creates a provisioner.
func NewProvisioner(store controlplane.Store, provider infra.Provider, schema schemasync.Syncer, cfg config.Provisioner, log *slog.Logger) *Provisioner {
	return &Provisioner{
		store:  store,
		infra:  provider,
		schema: schema,
		cfg:    cfg,
		log:    log,
	}
}

// SetMetrics attaches provisioning metrics instruments.
func (p *Provisioner) SetMetrics(m *otel.Metrics) {
	p.metrics = m
}

// Provision creates a dedicated database for the organization. It is safe to
// retry: a run interrupted after infrastructure creation resumes at the
// connection-string poll, and the schema sync is idempotent.
//
// Errors carry the failure class: domain.ErrNotFound for unknown organizations,
// *provision.InfraError for terminal provider failures,
// provision.ErrNotYetAvailable when the connection string has not surfaced
// within the polling deadline, and *provision.SchemaSyncError when the database
// exists but could not be brought up to the tenant schema.
func (p *Provisioner) Provision(ctx context.Context, orgID string) (*provision.Result, error) {
	ctx, span := otel.StartProvisionSpan(ctx, orgID)
	defer span.End()

	if p.metrics != nil {
		p.metrics.ProvisionsStarted.Add(ctx, 1)
	}

	res, err := p.provision(ctx, orgID)
	if p.metrics != nil {
		if err != nil {
			p.metrics.ProvisionsFailed.Add(ctx, 1)
		} else {
			p.metrics.ProvisionsSucceeded.Add(ctx, 1)
		}
	}
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (p *Provisioner) provision(ctx context.Context, orgID string) (*provision.Result, error) {
	o, err := p.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if o.Dedicated() {
		return &provision.Result{
			OrganizationID: orgID,
			InfraProjectID: o.InfraProjectID,
			DatabaseURL:    o.DatabaseURL,
		}, nil
	}

	projectID := o.InfraProjectID
	if projectID == "" {
		projectID, err = p.infra.CreateProject(ctx, o.Slug)
		if err != nil {
			return nil, &provision.InfraError{Op: "create project", Err: err}
		}
		p.log.Info("infrastructure project created", "org_id", orgID, "project_id", projectID)

		if _, err := p.infra.CreateDatabase(ctx, projectID); err != nil {
			// Compensate so a half-built project is not left behind.
			if delErr := p.infra.DeleteProject(ctx, projectID); delErr != nil {
				p.log.Error("compensating project delete failed",
					"org_id", orgID, "project_id", projectID, "error", delErr)
			}
			return nil, &provision.InfraError{Op: "create database", Err: err}
		}

		// Checkpoint: a retry after this point resumes at the URL poll
		// instead of creating duplicate infrastructure.
		if err := p.store.MarkProvisioning(ctx, orgID, projectID); err != nil {
			return nil, fmt.Errorf("control plane: %w", err)
		}
	} else {
		p.log.Info("resuming provisioning", "org_id", orgID, "project_id", projectID)
	}

	url, err := p.waitForDatabaseURL(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// Schema sync happens before the organization is marked ready, so the
	// resolver never routes traffic to a database missing the tenant schema.
	if err := p.schema.Apply(ctx, url); err != nil {
		if failErr := p.store.MarkFailed(ctx, orgID); failErr != nil {
			p.log.Error("mark failed after schema sync error",
				"org_id", orgID, "error", failErr)
		}
		return nil, &provision.SchemaSyncError{Err: err}
	}

	if err := p.store.MarkReady(ctx, orgID, url); err != nil {
		return nil, fmt.Errorf("control plane: %w", err)
	}
	p.log.Info("dedicated database ready", "org_id", orgID, "project_id", projectID)

	return &provision.Result{
		OrganizationID: orgID,
		InfraProjectID: projectID,
		DatabaseURL:    url,
	}, nil
}

// waitForDatabaseURL polls the provider until the generated connection string
// appears, backing off exponentially up to the configured deadline.
func (p *Provisioner) waitForDatabaseURL(ctx context.Context, projectID string) (string, error) {
	ctx, span := otel.StartProvisionStepSpan(ctx, "wait_database_url", projectID)
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.PollInterval
	b.MaxInterval = p.cfg.PollMaxInterval

	return backoff.Retry(ctx, func() (string, error) {
		url, err := p.infra.DatabaseURL(ctx, projectID)
		if err != nil {
			return "", backoff.Permanent(&provision.InfraError{Op: "fetch connection string", Err: err})
		}
		if url == "" {
			return "", provision.ErrNotYetAvailable
		}
		return url, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(p.cfg.PollTimeout))
}
