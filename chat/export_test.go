package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-intel-client/api"
	"contract-intel-client/store"
)

func TestExportImportRoundTrip(t *testing.T) {
	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	c := New(&fakeBackend{}, db, time.Hour, zerolog.Nop())
	require.NoError(t, c.Initialize(context.Background()))
	defer c.Close()

	c.CreateConversation("")
	require.NoError(t, c.SendMessage(context.Background(), "Export me"))

	doc, err := c.ExportAllData()
	require.NoError(t, err)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(doc, &snap))
	assert.EqualValues(t, 1, snap["version"])

	// Importing into a fresh container restores the conversation.
	db2, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer db2.Close()
	c2 := New(&fakeBackend{}, db2, time.Hour, zerolog.Nop())
	require.NoError(t, c2.Initialize(context.Background()))
	defer c2.Close()

	require.NoError(t, c2.ImportData(doc))
	convs := c2.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "Export me", convs[0].Title)
}

func TestImportMalformedDocument(t *testing.T) {
	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	c := New(&fakeBackend{}, db, time.Hour, zerolog.Nop())
	require.NoError(t, c.Initialize(context.Background()))
	defer c.Close()

	err = c.ImportData([]byte("{broken"))
	assert.ErrorIs(t, err, store.ErrMalformedImport)
}

func TestCompactStore(t *testing.T) {
	db, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	c := New(&fakeBackend{}, db, time.Hour, zerolog.Nop())
	require.NoError(t, c.Initialize(context.Background()))
	defer c.Close()

	c.CreateConversation("")
	require.NoError(t, c.CompactStore())

	mem := newTestContainer(t, &fakeBackend{})
	assert.ErrorIs(t, mem.CompactStore(), ErrNoStore)
}

func TestExportConversationMarkdown(t *testing.T) {
	c := newTestContainer(t, &fakeBackend{
		chatFn: func(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
			return &api.ChatResponse{Response: "The clause survives termination."}, nil
		},
	})
	conv := c.CreateConversation("")
	require.NoError(t, c.SendMessage(context.Background(), "Does the clause survive?"))

	md, err := c.ExportConversationMarkdown(conv.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# Does the clause survive?"))
	assert.Contains(t, md, "Does the clause survive?")
	assert.Contains(t, md, "The clause survives termination.")
	assert.Contains(t, md, "User")
	assert.Contains(t, md, "Assistant")
}

func TestExportConversationJSON(t *testing.T) {
	c := newTestContainer(t, &fakeBackend{})
	conv := c.CreateConversation("")
	require.NoError(t, c.SendMessage(context.Background(), "hello"))

	data, err := c.ExportConversationJSON(conv.ID)
	require.NoError(t, err)

	var out struct {
		ID       string `json:"id"`
		Messages []any  `json:"messages"`
		Metadata map[string]string
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, conv.ID, out.ID)
	assert.Len(t, out.Messages, 2)
	assert.Equal(t, "1.0", out.Metadata["export_version"])
}

func TestExportConversationNotFound(t *testing.T) {
	c := newTestContainer(t, &fakeBackend{})
	_, err := c.ExportConversationJSON("missing")
	assert.Error(t, err)
	_, err = c.ExportConversationMarkdown("missing")
	assert.Error(t, err)
}
