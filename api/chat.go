package api

import (
	"context"
	"fmt"
	"net/http"
)

// Chat sends one chat turn with the full prior history as context and
// waits for the complete response. Streaming is always disabled; the
// caller models the in-flight turn with a placeholder message instead.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/chat", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	return &resp, nil
}

// SyncNow triggers an immediate knowledge-base synchronization.
func (c *Client) SyncNow(ctx context.Context) (*SyncResult, error) {
	var resp struct {
		Success    bool       `json:"success"`
		SyncResult SyncResult `json:"sync_result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/sync-now", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("sync failed: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("sync failed: backend reported failure")
	}
	return &resp.SyncResult, nil
}

// KBStatus fetches the current knowledge-base status document.
func (c *Client) KBStatus(ctx context.Context) (map[string]any, error) {
	var resp struct {
		Success  bool           `json:"success"`
		KBStatus map[string]any `json:"kb_status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/kb-status", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("kb status failed: %w", err)
	}
	return resp.KBStatus, nil
}
