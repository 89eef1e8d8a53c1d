//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type orgResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	DatabaseStatus string `json:"database_status"`
}

type routingResponse struct {
	OrganizationID string `json:"organization_id"`
	DatabaseStatus string `json:"database_status"`
	Dedicated      bool   `json:"dedicated"`
}

func createTestOrg(t *testing.T, name string) orgResponse {
	t.Helper()

	slug := fmt.Sprintf("it-%s-%d", name, time.Now().UnixNano())
	body := bytes.NewBufferString(fmt.Sprintf(`{"name":%q,"slug":%q}`, name, slug))
	resp, err := http.Post(testServer.URL+"/api/organizations", "application/json", body)
	if err != nil {
		t.Fatalf("POST /api/organizations: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var o orgResponse
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return o
}

func TestCreateOrganizationStartsOnShared(t *testing.T) {
	o := createTestOrg(t, "Acme Insurance")

	if o.DatabaseStatus != "shared" {
		t.Fatalf("expected new organizations on the shared database, got %q", o.DatabaseStatus)
	}

	resp, err := http.Get(testServer.URL + "/api/organizations/" + o.ID + "/database")
	if err != nil {
		t.Fatalf("GET routing: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var routing routingResponse
	if err := json.NewDecoder(resp.Body).Decode(&routing); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if routing.Dedicated {
		t.Fatal("a fresh organization must not be routed to a dedicated database")
	}
}

func TestGetRoutingUnknownOrganization(t *testing.T) {
	resp, err := http.Get(testServer.URL + "/api/organizations/00000000-0000-0000-0000-000000000000/database")
	if err != nil {
		t.Fatalf("GET routing: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListOrganizationsIncludesCreated(t *testing.T) {
	o := createTestOrg(t, "Listed Agency")

	resp, err := http.Get(testServer.URL + "/api/organizations")
	if err != nil {
		t.Fatalf("GET /api/organizations: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var orgs []orgResponse
	if err := json.NewDecoder(resp.Body).Decode(&orgs); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, got := range orgs {
		if got.ID == o.ID {
			return
		}
	}
	t.Fatalf("organization %s missing from list", o.ID)
}
