package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/brokerstack/tenantdb/internal/adapter/postgres"
	"github.com/brokerstack/tenantdb/internal/adapter/railway"
	"github.com/brokerstack/tenantdb/internal/config"
	"github.com/brokerstack/tenantdb/internal/domain/org"
	"github.com/brokerstack/tenantdb/internal/port/controlplane"
	"github.com/brokerstack/tenantdb/internal/resilience"
	"github.com/brokerstack/tenantdb/internal/service"
)

// runAdmin dispatches admin subcommands (create-org, list-orgs, provision-db).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-org":
		return runAdminCreateOrg(args[1:])
	case "list-orgs":
		return runAdminListOrgs(args[1:])
	case "provision-db":
		return runAdminProvisionDB(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tenantdb admin <command> [options]

Commands:
  create-org     Create a new organization on the shared database
  list-orgs      List all organizations and their database routing state
  provision-db   Provision a dedicated database for an organization
  help           Show this help message

Examples:
  tenantdb admin create-org --name "Acme Insurance" --slug acme
  tenantdb admin list-orgs
  tenantdb admin provision-db --org <organization-id>
`)
}

func loadAdminDeps() (*config.Config, controlplane.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.ControlPlane)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to control plane: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}
	return cfg, postgres.NewStore(pool), cleanup, nil
}

func runAdminCreateOrg(args []string) error {
	fs := flag.NewFlagSet("create-org", flag.ContinueOnError)
	name := fs.String("name", "", "organization display name (required)")
	slug := fs.String("slug", "", "organization slug (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *slug == "" {
		return fmt.Errorf("--slug is required")
	}

	_, store, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	o, err := store.CreateOrganization(context.Background(), org.CreateRequest{
		Name: *name,
		Slug: *slug,
	})
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Organization created: %s (id=%s)\n", o.Slug, o.ID)
	return nil
}

func runAdminListOrgs(args []string) error {
	fs := flag.NewFlagSet("list-orgs", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	orgs, err := store.ListOrganizations(context.Background())
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	if len(orgs) == 0 {
		fmt.Println("No organizations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tDB_STATUS\tINFRA_PROJECT\tPROVISIONED_AT")
	for i := range orgs {
		provisionedAt := ""
		if orgs[i].ProvisionedAt != nil {
			provisionedAt = orgs[i].ProvisionedAt.Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			orgs[i].ID, orgs[i].Slug, orgs[i].Name, orgs[i].DatabaseStatus, orgs[i].InfraProjectID, provisionedAt)
	}
	return w.Flush()
}

func runAdminProvisionDB(args []string) error {
	fs := flag.NewFlagSet("provision-db", flag.ContinueOnError)
	orgID := fs.String("org", "", "organization id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *orgID == "" {
		return fmt.Errorf("--org is required")
	}

	cfg, store, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	infraClient := railway.NewClient(cfg.Infra.URL, cfg.Infra.Token)
	infraClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	provisioner := service.NewProvisioner(store, infraClient, postgres.Syncer{}, cfg.Provisioner, log)

	fmt.Fprintf(os.Stderr, "Provisioning dedicated database for %s (this can take a few minutes)...\n", *orgID)
	res, err := provisioner.Provision(context.Background(), *orgID)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Dedicated database ready: project=%s\n", res.InfraProjectID)
	return nil
}
