package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/brokerstack/tenantdb/internal/domain"
	"github.com/brokerstack/tenantdb/internal/domain/org"
)

const orgColumns = `id, name, slug, database_status, database_url, infra_project_id, provisioned_at, created_at, updated_at`

func scanOrg(row pgx.Row) (*org.Organization, error) {
	var o org.Organization
	var url, projectID *string
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.DatabaseStatus, &url, &projectID, &o.ProvisionedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if url != nil {
		o.DatabaseURL = *url
	}
	if projectID != nil {
		o.InfraProjectID = *projectID
	}
	return &o, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*org.Organization, error) {
	o, err := scanOrg(s.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get organization %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get organization %s: %w", id, err)
	}
	return o, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]org.Organization, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []org.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

func (s *Store) CreateOrganization(ctx context.Context, req org.CreateRequest) (*org.Organization, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o, err := scanOrg(s.pool.QueryRow(ctx,
		`INSERT INTO organizations (id, name, slug) VALUES ($1, $2, $3)
		 RETURNING `+orgColumns, uuid.NewString(), req.Name, req.Slug))
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return o, nil
}

func (s *Store) OrganizationIDForUser(ctx context.Context, userID string) (string, error) {
	var orgID *string
	err := s.pool.QueryRow(ctx,
		`SELECT organization_id FROM users WHERE id = $1`, userID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("organization for user %s: %w", userID, err)
	}
	if orgID == nil {
		return "", fmt.Errorf("user %s has no organization: %w", userID, domain.ErrNotFound)
	}
	return *orgID, nil
}

func (s *Store) MarkProvisioning(ctx context.Context, id, infraProjectID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations
		 SET database_status = $2, infra_project_id = $3, updated_at = now()
		 WHERE id = $1`,
		id, org.DatabaseProvisioning, infraProjectID)
	if err != nil {
		return fmt.Errorf("mark provisioning %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark provisioning %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkReady(ctx context.Context, id, databaseURL string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations
		 SET database_status = $2, database_url = $3,
		     provisioned_at = COALESCE(provisioned_at, now()), updated_at = now()
		 WHERE id = $1`,
		id, org.DatabaseReady, databaseURL)
	if err != nil {
		return fmt.Errorf("mark ready %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark ready %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE organizations
		 SET database_status = $2, updated_at = now()
		 WHERE id = $1`,
		id, org.DatabaseFailed)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark failed %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
