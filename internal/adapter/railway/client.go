// Package railway provides a GraphQL client for the Railway infrastructure API,
// used to provision isolated Postgres instances for dedicated tenants.
package railway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brokerstack/tenantdb/internal/resilience"
)

// Client talks to the Railway GraphQL API. It implements the infra.Provider port.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Railway API client authenticated with the given token.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing API calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

const projectCreateQuery = `mutation($name: String!) {
  projectCreate(input: { name: $name }) { id }
}`

// CreateProject creates a new Railway project and returns its id.
func (c *Client) CreateProject(ctx context.Context, name string) (string, error) {
	var resp struct {
		ProjectCreate struct {
			ID string `json:"id"`
		} `json:"projectCreate"`
	}
	if err := c.do(ctx, projectCreateQuery, map[string]any{"name": name}, &resp); err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	return resp.ProjectCreate.ID, nil
}

const pluginCreateQuery = `mutation($projectId: String!) {
  pluginCreate(input: { projectId: $projectId, name: "postgresql" }) { id }
}`

// CreateDatabase attaches a fresh PostgreSQL plugin to the project.
func (c *Client) CreateDatabase(ctx context.Context, projectID string) (string, error) {
	var resp struct {
		PluginCreate struct {
			ID string `json:"id"`
		} `json:"pluginCreate"`
	}
	if err := c.do(ctx, pluginCreateQuery, map[string]any{"projectId": projectID}, &resp); err != nil {
		return "", fmt.Errorf("create database: %w", err)
	}
	return resp.PluginCreate.ID, nil
}

const projectQuery = `query($id: String!) {
  project(id: $id) {
    environments { edges { node { id } } }
    plugins { edges { node { id name } } }
  }
}`

const variablesQuery = `query($projectId: String!, $environmentId: String!, $pluginId: String!) {
  variables(projectId: $projectId, environmentId: $environmentId, pluginId: $pluginId)
}`

// DatabaseURL fetches the generated DATABASE_URL for the project's PostgreSQL
// plugin. Returns an empty string with a nil error while Railway has not yet
// surfaced the variable (the plugin provisions asynchronously).
func (c *Client) DatabaseURL(ctx context.Context, projectID string) (string, error) {
	var proj struct {
		Project struct {
			Environments struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"environments"`
			Plugins struct {
				Edges []struct {
					Node struct {
						ID   string `json:"id"`
						Name string `json:"name"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"plugins"`
		} `json:"project"`
	}
	if err := c.do(ctx, projectQuery, map[string]any{"id": projectID}, &proj); err != nil {
		return "", fmt.Errorf("fetch project: %w", err)
	}

	var pluginID string
	for _, e := range proj.Project.Plugins.Edges {
		if e.Node.Name == "postgresql" {
			pluginID = e.Node.ID
			break
		}
	}
	if pluginID == "" || len(proj.Project.Environments.Edges) == 0 {
		return "", nil
	}
	environmentID := proj.Project.Environments.Edges[0].Node.ID

	var vars struct {
		Variables map[string]string `json:"variables"`
	}
	err := c.do(ctx, variablesQuery, map[string]any{
		"projectId":     projectID,
		"environmentId": environmentID,
		"pluginId":      pluginID,
	}, &vars)
	if err != nil {
		return "", fmt.Errorf("fetch variables: %w", err)
	}

	return vars.Variables["DATABASE_URL"], nil
}

const projectDeleteQuery = `mutation($id: String!) {
  projectDelete(id: $id)
}`

// DeleteProject tears down a Railway project and everything attached to it.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	var resp struct {
		ProjectDelete bool `json:"projectDelete"`
	}
	if err := c.do(ctx, projectDeleteQuery, map[string]any{"id": projectID}, &resp); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

type gqlError struct {
	Message string `json:"message"`
}

// do executes one GraphQL operation and decodes the data envelope into out.
// GraphQL-level errors surface with the provider's message intact so operators
// can distinguish quota and credential problems from transient ones.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	call := func() error {
		body, err := json.Marshal(map[string]any{
			"query":     query,
			"variables": variables,
		})
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("railway API error %d: %s", resp.StatusCode, string(data))
		}

		var envelope struct {
			Data   json.RawMessage `json:"data"`
			Errors []gqlError      `json:"errors"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("unmarshal envelope: %w", err)
		}
		if len(envelope.Errors) > 0 {
			msgs := make([]string, len(envelope.Errors))
			for i, e := range envelope.Errors {
				msgs[i] = e.Message
			}
			return fmt.Errorf("railway: %s", strings.Join(msgs, "; "))
		}

		if out != nil && envelope.Data != nil {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return fmt.Errorf("unmarshal data: %w", err)
			}
		}
		return nil
	}

	if c.breaker != nil {
		return c.breaker.Execute(call)
	}
	return call()
}
