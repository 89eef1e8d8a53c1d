package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brokerstack/tenantdb/internal/domain"
	"github.com/brokerstack/tenantdb/internal/domain/org"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newLazyPool builds a real pgxpool that never connects: connections are
// established on first acquire, which these tests never do.
func newLazyPool(t *testing.T, name string) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:5432/"+name)
	if err != nil {
		t.Fatalf("create lazy pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// fakeStore is an in-memory controlplane.Store.
type fakeStore struct {
	mu       sync.Mutex
	orgs     map[string]*org.Organization
	userOrgs map[string]string
	err      error // when set, every call fails with it
	getCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:     make(map[string]*org.Organization),
		userOrgs: make(map[string]string),
	}
}

func (s *fakeStore) addOrg(o org.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[o.ID] = &o
}

func (s *fakeStore) org(id string) org.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orgs[id]
}

func (s *fakeStore) GetOrganization(_ context.Context, id string) (*org.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.err != nil {
		return nil, s.err
	}
	o, ok := s.orgs[id]
	if !ok {
		return nil, fmt.Errorf("get organization %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) ListOrganizations(context.Context) ([]org.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []org.Organization
	for _, o := range s.orgs {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeStore) CreateOrganization(_ context.Context, req org.CreateRequest) (*org.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	o := &org.Organization{ID: req.Slug, Name: req.Name, Slug: req.Slug, DatabaseStatus: org.DatabaseShared}
	s.orgs[o.ID] = o
	cp := *o
	return &cp, nil
}

func (s *fakeStore) OrganizationIDForUser(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	id, ok := s.userOrgs[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return id, nil
}

func (s *fakeStore) MarkProvisioning(_ context.Context, id, infraProjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	o, ok := s.orgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.DatabaseStatus = org.DatabaseProvisioning
	o.InfraProjectID = infraProjectID
	return nil
}

func (s *fakeStore) MarkReady(_ context.Context, id, databaseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	o, ok := s.orgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.DatabaseStatus = org.DatabaseReady
	o.DatabaseURL = databaseURL
	if o.ProvisionedAt == nil {
		now := time.Now()
		o.ProvisionedAt = &now
	}
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	o, ok := s.orgs[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.DatabaseStatus = org.DatabaseFailed
	return nil
}

// fakeProvider is an in-memory infra.Provider.
type fakeProvider struct {
	mu sync.Mutex

	createProjectErr  error
	createDatabaseErr error
	urlErr            error
	url               string
	urlAfterCalls     int // DatabaseURL returns "" this many times before url

	projectsCreated  int
	databasesCreated int
	urlCalls         int
	deleted          []string
}

func (p *fakeProvider) CreateProject(_ context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createProjectErr != nil {
		return "", p.createProjectErr
	}
	p.projectsCreated++
	return "proj-" + name, nil
}

func (p *fakeProvider) CreateDatabase(_ context.Context, projectID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createDatabaseErr != nil {
		return "", p.createDatabaseErr
	}
	p.databasesCreated++
	return "db-" + projectID, nil
}

func (p *fakeProvider) DatabaseURL(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urlCalls++
	if p.urlErr != nil {
		return "", p.urlErr
	}
	if p.urlCalls <= p.urlAfterCalls {
		return "", nil
	}
	return p.url, nil
}

func (p *fakeProvider) DeleteProject(_ context.Context, projectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, projectID)
	return nil
}

// fakeSyncer is an in-memory schemasync.Syncer.
type fakeSyncer struct {
	mu      sync.Mutex
	err     error
	applied []string
}

func (s *fakeSyncer) Apply(_ context.Context, databaseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, databaseURL)
	return nil
}

func (s *fakeSyncer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// memCache is a map-backed cache port implementation that ignores TTLs.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
