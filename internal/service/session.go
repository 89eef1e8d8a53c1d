package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brokerstack/tenantdb/internal/domain"
)

// Session carries the ambient identity of a request: an explicit organization,
// an acting user, both, or neither.
type Session struct {
	OrganizationID string
	UserID         string
}

// ResolveSession derives the organization to route for from the session and
// resolves its pool. An explicit OrganizationID always wins over the acting
// user's organization. The result degrades to the shared pool when neither
// yields a known organization; only control-plane outages fail.
func (r *Resolver) ResolveSession(ctx context.Context, s Session) (*pgxpool.Pool, error) {
	orgID := s.OrganizationID
	if orgID == "" && s.UserID != "" {
		id, err := r.store.OrganizationIDForUser(ctx, s.UserID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return r.shared, nil
		case err != nil:
			return nil, fmt.Errorf("control plane: %w", err)
		}
		orgID = id
	}
	if orgID == "" {
		return r.shared, nil
	}

	pool, err := r.Resolve(ctx, orgID)
	if errors.Is(err, domain.ErrNotFound) {
		// Sessions can outlive their organization; serve them from the
		// shared database instead of failing the request.
		return r.shared, nil
	}
	return pool, err
}
