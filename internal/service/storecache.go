package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brokerstack/tenantdb/internal/domain/org"
	"github.com/brokerstack/tenantdb/internal/port/cache"
	"github.com/brokerstack/tenantdb/internal/port/controlplane"
)

// CachedStore decorates a controlplane.Store with a read-through TTL cache on
// GetOrganization, the one query on the request hot path. Every routing-state
// write invalidates the organization's entry, so a status change is visible
// after at most one TTL window on other processes and immediately on this one.
type CachedStore struct {
	inner controlplane.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedStore wraps inner with the given cache and TTL.
func NewCachedStore(inner controlplane.Store, c cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, cache: c, ttl: ttl}
}

func orgKey(id string) string { return "org:" + id }

func (s *CachedStore) GetOrganization(ctx context.Context, id string) (*org.Organization, error) {
	if data, ok, err := s.cache.Get(ctx, orgKey(id)); err == nil && ok {
		var o org.Organization
		if err := json.Unmarshal(data, &o); err == nil {
			return &o, nil
		}
	}

	o, err := s.inner.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(o); err == nil {
		_ = s.cache.Set(ctx, orgKey(id), data, s.ttl)
	}
	return o, nil
}

func (s *CachedStore) ListOrganizations(ctx context.Context) ([]org.Organization, error) {
	return s.inner.ListOrganizations(ctx)
}

func (s *CachedStore) CreateOrganization(ctx context.Context, req org.CreateRequest) (*org.Organization, error) {
	return s.inner.CreateOrganization(ctx, req)
}

func (s *CachedStore) OrganizationIDForUser(ctx context.Context, userID string) (string, error) {
	return s.inner.OrganizationIDForUser(ctx, userID)
}

func (s *CachedStore) MarkProvisioning(ctx context.Context, id, infraProjectID string) error {
	if err := s.inner.MarkProvisioning(ctx, id, infraProjectID); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, orgKey(id))
	return nil
}

func (s *CachedStore) MarkReady(ctx context.Context, id, databaseURL string) error {
	if err := s.inner.MarkReady(ctx, id, databaseURL); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, orgKey(id))
	return nil
}

func (s *CachedStore) MarkFailed(ctx context.Context, id string) error {
	if err := s.inner.MarkFailed(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, orgKey(id))
	return nil
}
