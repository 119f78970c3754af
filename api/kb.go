package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListKBRows fetches one page of knowledge-base rows, optionally
// filtered by a search term.
func (c *Client) ListKBRows(ctx context.Context, page, pageSize int, search string) (*KBRowsPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	if search != "" {
		query.Set("search", search)
	}

	var resp KBRowsPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/kb/rows", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list kb rows: %w", err)
	}
	return &resp, nil
}

// DeleteKBRows removes knowledge-base rows by id.
func (c *Client) DeleteKBRows(ctx context.Context, rowIDs []string) (*KBDeleteResult, error) {
	body := map[string]any{"row_ids": rowIDs}
	var resp KBDeleteResult
	if err := c.doJSON(ctx, http.MethodDelete, "/api/kb/rows", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to delete kb rows: %w", err)
	}
	return &resp, nil
}
