//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"
)

type provisionResponse struct {
	Success        bool   `json:"success"`
	DatabaseURL    string `json:"database_url"`
	InfraProjectID string `json:"infra_project_id"`
}

// TestProvisionDedicatedDatabase runs the full provisioning flow against a
// scratch tenant database, including the real schema sync.
func TestProvisionDedicatedDatabase(t *testing.T) {
	if tenantDSN == "" {
		t.Skip("TENANT_DATABASE_URL not set")
	}

	o := createTestOrg(t, "Dedicated Agency")

	resp, err := http.Post(testServer.URL+"/api/organizations/"+o.ID+"/database", "application/json", nil)
	if err != nil {
		t.Fatalf("POST provision: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var res provisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !res.Success || res.DatabaseURL == "" {
		t.Fatalf("unexpected provision response %+v", res)
	}

	// Routing flips to the dedicated database only after the schema sync.
	routingResp, err := http.Get(testServer.URL + "/api/organizations/" + o.ID + "/database")
	if err != nil {
		t.Fatalf("GET routing: %v", err)
	}
	defer func() { _ = routingResp.Body.Close() }()

	var routing routingResponse
	if err := json.NewDecoder(routingResp.Body).Decode(&routing); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !routing.Dedicated || routing.DatabaseStatus != "ready" {
		t.Fatalf("expected a ready dedicated database, got %+v", routing)
	}

	// Provisioning again is a no-op returning the same database.
	again, err := http.Post(testServer.URL+"/api/organizations/"+o.ID+"/database", "application/json", nil)
	if err != nil {
		t.Fatalf("POST provision again: %v", err)
	}
	defer func() { _ = again.Body.Close() }()

	var res2 provisionResponse
	if err := json.NewDecoder(again.Body).Decode(&res2); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res2.DatabaseURL != res.DatabaseURL {
		t.Fatalf("repeat provisioning changed the database: %q vs %q", res2.DatabaseURL, res.DatabaseURL)
	}

	// The schema sync created the tenant tables.
	var table string
	err = testPoolTenantQuery(t, "SELECT tablename FROM pg_tables WHERE tablename = 'prospects'", &table)
	if err != nil {
		t.Fatalf("query tenant database: %v", err)
	}
	if table != "prospects" {
		t.Fatalf("tenant schema missing, got table %q", table)
	}
}
