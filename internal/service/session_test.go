package service

import (
	"context"
	"errors"
	"testing"

	"github.com/brokerstack/tenantdb/internal/domain/org"
)

func TestResolveSessionExplicitOrgWins(t *testing.T) {
	store := newFakeStore()
	store.addOrg(org.Organization{ID: "explicit", DatabaseStatus: org.DatabaseReady, DatabaseURL: "postgres://u:p@h/explicit"})
	store.addOrg(org.Organization{ID: "home", DatabaseStatus: org.DatabaseReady, DatabaseURL: "postgres://u:p@h/home"})
	store.userOrgs["user-1"] = "home"
	r, _, dial := newTestResolver(t, store)

	_, err := r.ResolveSession(context.Background(), Session{OrganizationID: "explicit", UserID: "user-1"})
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if dial.count() != 1 || dial.calls[0] != "postgres://u:p@h/explicit" {
		t.Fatalf("dialed %v, want only the explicit organization's database", dial.calls)
	}
}

func TestResolveSessionUsesUserOrganization(t *testing.T) {
	store := newFakeStore()
	store.addOrg(org.Organization{ID: "home", DatabaseStatus: org.DatabaseReady, DatabaseURL: "postgres://u:p@h/home"})
	store.userOrgs["user-1"] = "home"
	r, _, dial := newTestResolver(t, store)

	_, err := r.ResolveSession(context.Background(), Session{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if dial.count() != 1 || dial.calls[0] != "postgres://u:p@h/home" {
		t.Fatalf("dialed %v, want the user's organization database", dial.calls)
	}
}

func TestResolveSessionUnknownUserDegradesToShared(t *testing.T) {
	r, shared, _ := newTestResolver(t, newFakeStore())

	pool, err := r.ResolveSession(context.Background(), Session{UserID: "ghost"})
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if pool != shared {
		t.Fatal("expected the shared pool for an unknown user")
	}
}

func TestResolveSessionStaleOrgDegradesToShared(t *testing.T) {
	store := newFakeStore()
	store.userOrgs["user-1"] = "deleted-org"
	r, shared, _ := newTestResolver(t, store)

	pool, err := r.ResolveSession(context.Background(), Session{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if pool != shared {
		t.Fatal("expected the shared pool when the user's organization no longer exists")
	}
}

func TestResolveSessionEmptyReturnsShared(t *testing.T) {
	r, shared, _ := newTestResolver(t, newFakeStore())

	pool, err := r.ResolveSession(context.Background(), Session{})
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if pool != shared {
		t.Fatal("expected the shared pool for an anonymous session")
	}
}

func TestResolveSessionControlPlaneErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	r, _, _ := newTestResolver(t, store)

	if _, err := r.ResolveSession(context.Background(), Session{UserID: "user-1"}); err == nil {
		t.Fatal("expected an error when the control plane is down")
	}
}
