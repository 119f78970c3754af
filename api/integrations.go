package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateIntegration registers a new integration instance with the
// backend and returns the confirmed instance fields.
func (c *Client) CreateIntegration(ctx context.Context, req IntegrationCreateRequest) (*IntegrationCreateResponse, error) {
	var resp IntegrationCreateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/integrations", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}
	return &resp, nil
}

// DeleteIntegration removes an integration instance by its
// backend-assigned database name.
func (c *Client) DeleteIntegration(ctx context.Context, databaseName string) error {
	path := "/api/integrations/" + url.PathEscape(databaseName)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	return nil
}

// TestIntegration probes a connection with throwaway parameters.
// Transport errors are swallowed into a false result; the caller only
// wants a yes/no.
func (c *Client) TestIntegration(ctx context.Context, req IntegrationTestRequest) bool {
	var resp struct {
		TestPassed bool `json:"test_passed"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/integrations/test", nil, req, &resp); err != nil {
		c.log.Warn().Err(err).Str("type", req.IntegrationType).Msg("integration test failed")
		return false
	}
	return resp.TestPassed
}

// SyncIntegration triggers a sync of a single integration instance.
func (c *Client) SyncIntegration(ctx context.Context, databaseName string) error {
	path := "/api/integrations/" + url.PathEscape(databaseName) + "/sync"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to sync integration: %w", err)
	}
	return nil
}

// ListTables fetches the tables visible through an integration
// instance.
func (c *Client) ListTables(ctx context.Context, databaseName string) ([]TableInfo, error) {
	path := "/api/integrations/" + url.PathEscape(databaseName) + "/tables"
	var resp struct {
		DatabaseName string      `json:"database_name"`
		Tables       []TableInfo `json:"tables"`
		Total        int         `json:"total"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return resp.Tables, nil
}
