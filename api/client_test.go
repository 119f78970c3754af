package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zerolog.Nop())
}

func TestChatRequestShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/agent/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Which contracts auto-renew?", req.Message)
		assert.Equal(t, "conv-1", req.ConversationID)
		require.Len(t, req.ConversationHistory, 1)
		assert.Equal(t, "user", req.ConversationHistory[0].Role)
		assert.False(t, req.Stream, "streaming is always disabled")

		json.NewEncoder(w).Encode(ChatResponse{Response: "Two of them.", ContextLength: 1024})
	})

	resp, err := client.Chat(context.Background(), ChatRequest{
		Message:             "Which contracts auto-renew?",
		ConversationID:      "conv-1",
		ConversationHistory: []ConversationMessage{{Role: "user", Content: "earlier"}},
		Stream:              true, // must be overridden
	})
	require.NoError(t, err)
	assert.Equal(t, "Two of them.", resp.Response)
	assert.Equal(t, 1024, resp.ContextLength)
}

func TestNon2xxSurfacesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"agent not ready"}`, http.StatusServiceUnavailable)
	})

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "agent not ready")
}

func TestSyncNow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/agent/sync-now", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"sync_result": SyncResult{
				Status:       "completed",
				TotalSources: 7,
				NewSources:   2,
			},
		})
	})

	result, err := client.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 7, result.TotalSources)
	assert.Equal(t, 2, result.NewSources)
}

func TestSyncNowBackendFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	})

	_, err := client.SyncNow(context.Background())
	assert.Error(t, err)
}

func TestDeleteIntegrationEscapesName(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DeleteIntegration(context.Background(), "pg/main db"))
	assert.Equal(t, "/api/integrations/pg%2Fmain%20db", gotPath)
}

func TestTestIntegrationSwallowsErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	ok := client.TestIntegration(context.Background(), IntegrationTestRequest{IntegrationType: "postgresql"})
	assert.False(t, ok)
}

func TestTestIntegrationPassed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/integrations/test", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"test_passed": true})
	})

	ok := client.TestIntegration(context.Background(), IntegrationTestRequest{IntegrationType: "postgresql"})
	assert.True(t, ok)
}

func TestListTables(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/integrations/pg_main/tables", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"database_name": "pg_main",
			"tables":        []TableInfo{{Name: "contracts"}, {Name: "parties"}},
			"total":         2,
		})
	})

	tables, err := client.ListTables(context.Background(), "pg_main")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "contracts", tables[0].Name)
}

func TestUploadPDFMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msa.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload/pdf", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "msa.pdf", header.Filename)

		json.NewEncoder(w).Encode(UploadResponse{OriginalFilename: header.Filename, Size: header.Size})
	})

	resp, err := client.UploadPDF(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "msa.pdf", resp.OriginalFilename)
	assert.EqualValues(t, len("%PDF-1.4 fake"), resp.Size)
}

func TestUploadPDFMissingFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for a missing file")
	})

	_, err := client.UploadPDF(context.Background(), "/does/not/exist.pdf")
	assert.Error(t, err)
}

func TestUploadURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload/url", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com/contract.pdf", body["url"])
		json.NewEncoder(w).Encode(UploadResponse{OriginalFilename: "contract.pdf", Size: 9, TableName: "kb_docs"})
	})

	resp, err := client.UploadURL(context.Background(), "https://example.com/contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, "kb_docs", resp.TableName)
}

func TestValidateRecipients(t *testing.T) {
	assert.NoError(t, ValidateRecipients([]string{"legal@example.com", "Ops Team <ops@example.com>"}))
	assert.Error(t, ValidateRecipients(nil))
	assert.Error(t, ValidateRecipients([]string{"not-an-address"}))
	assert.Error(t, ValidateRecipients([]string{"legal@example.com", "broken@"}))
}

func TestSendEmailRejectsBeforeRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid recipients must be rejected before any network call")
	})

	_, err := client.SendEmail(context.Background(), []string{"nope"}, "s", "b")
	assert.Error(t, err)
}

func TestScheduleEmailDatetimeFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/actions/email/schedule", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-09-01 09:30:00", body["datetime"])
		json.NewEncoder(w).Encode(EmailSendResponse{Status: "scheduled"})
	})

	at := time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)
	resp, err := client.ScheduleEmail(context.Background(), []string{"legal@example.com"}, "Renewal", "body", at)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", resp.Status)
}

func TestListKBRowsQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kb/rows", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("page_size"))
		assert.Equal(t, "indemnity", q.Get("search"))
		json.NewEncoder(w).Encode(KBRowsPage{Rows: []map[string]any{{"id": "r1"}}, TotalCount: 51, Page: 2, TotalPages: 3})
	})

	page, err := client.ListKBRows(context.Background(), 2, 25, "indemnity")
	require.NoError(t, err)
	assert.Equal(t, 51, page.TotalCount)
	require.Len(t, page.Rows, 1)
}

func TestDeleteKBRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"r1", "r2"}, body["row_ids"])
		json.NewEncoder(w).Encode(KBDeleteResult{Success: true, DeletedCount: 2})
	})

	result, err := client.DeleteKBRows(context.Background(), []string{"r1", "r2"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.DeletedCount)
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:8000/"}, zerolog.Nop())
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}
