package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"contract-intel-client/store"
)

// ErrNoStore is returned by snapshot operations during an
// in-memory-only session.
var ErrNoStore = fmt.Errorf("no persistent store available")

// ExportAllData serializes every persisted collection into a single
// portable JSON document.
func (c *Container) ExportAllData() ([]byte, error) {
	if c.db == nil {
		return nil, ErrNoStore
	}

	// Flush so the snapshot reflects the in-memory state, not the last
	// debounced write.
	c.saver.Flush()

	snap, err := c.db.ExportSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to export data: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// ImportData upserts a snapshot document into the store and reloads
// conversations, integrations and preferences to reconcile in-memory
// state.
func (c *Container) ImportData(doc []byte) error {
	if c.db == nil {
		return ErrNoStore
	}

	if err := c.db.ImportSnapshot(doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return fmt.Errorf("failed to reload state after import: %w", err)
	}
	return nil
}

// ExportConversationJSON exports a single conversation with export
// metadata.
func (c *Container) ExportConversationJSON(id string) ([]byte, error) {
	conv, ok := c.Conversation(id)
	if !ok {
		return nil, fmt.Errorf("conversation not found")
	}

	export := struct {
		Conversation
		Metadata map[string]string `json:"metadata"`
	}{
		Conversation: conv,
		Metadata: map[string]string{
			"export_version": "1.0",
			"export_date":    time.Now().Format(time.RFC3339),
			"app_name":       "Contract Intelligence Client",
		},
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// ExportConversationMarkdown renders a single conversation as a
// Markdown document.
func (c *Container) ExportConversationMarkdown(id string) (string, error) {
	conv, ok := c.Conversation(id)
	if !ok {
		return "", fmt.Errorf("conversation not found")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", conv.Title))
	sb.WriteString(fmt.Sprintf("**Created**: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**Updated**: %s\n\n", conv.UpdatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString("---\n\n")

	for i, msg := range conv.Messages {
		icon, name := "👤", "User"
		switch msg.Role {
		case RoleAssistant:
			icon, name = "🤖", "Assistant"
		case RoleSystem:
			icon, name = "⚙️", "System"
		}
		sb.WriteString(fmt.Sprintf("## %s %s\n\n", icon, name))
		if msg.Status == StatusError {
			sb.WriteString("*This reply failed.*\n\n")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported: %s*\n", time.Now().Format("2006-01-02 15:04:05")))

	return sb.String(), nil
}

// StoreStats returns persistence statistics for status output.
func (c *Container) StoreStats() (*store.Stats, error) {
	if c.db == nil {
		return nil, ErrNoStore
	}
	return c.db.GetStats()
}

// CompactStore flushes pending writes and reclaims space freed by
// deleted records.
func (c *Container) CompactStore() error {
	if c.db == nil {
		return ErrNoStore
	}
	c.saver.Flush()
	return c.db.Vacuum()
}
