package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"contract-intel-client/api"
)

// assistantErrorText is the fixed user-facing text a placeholder
// resolves to when the remote call fails.
const assistantErrorText = "Sorry, I ran into a problem answering that. Please try again."

// titleLimit is the derived-title budget for a conversation's first
// message.
const titleLimit = 50

// SendMessage appends the user message, derives a title on the first
// message, inserts an assistant placeholder and awaits the complete
// remote response. The placeholder is replaced in place (same id) by a
// terminal sent or error message. At most one send may be in flight per
// conversation; a second returns ErrSendInFlight without mutating
// anything. With no active conversation the call is a silent no-op.
func (c *Container) SendMessage(ctx context.Context, text string) error {
	now := time.Now()

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	conv := c.activeConversationLocked()
	if conv == nil {
		c.mu.Unlock()
		c.log.Debug().Msg("send ignored: no active conversation")
		return nil
	}
	if c.inFlight[conv.ID] {
		c.mu.Unlock()
		return ErrSendInFlight
	}

	// History is the message list as it stood before this send.
	history := make([]api.ConversationMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		history = append(history, api.ConversationMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.Format(time.RFC3339),
		})
	}

	firstMessage := len(conv.Messages) == 0
	conv.Messages = append(conv.Messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: now,
		Status:    StatusSent,
	})
	if firstMessage {
		conv.Title = deriveTitle(text)
	}

	placeholder := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   "",
		Timestamp: now,
		Status:    StatusStreaming,
	}
	conv.Messages = append(conv.Messages, placeholder)
	conv.UpdatedAt = now

	convID := conv.ID
	placeholderID := placeholder.ID
	c.inFlight[convID] = true
	c.mu.Unlock()

	c.saver.Schedule()

	resp, err := c.backend.Chat(ctx, api.ChatRequest{
		Message:             text,
		ConversationID:      convID,
		ConversationHistory: history,
	})

	c.mu.Lock()
	delete(c.inFlight, convID)
	if conv := c.findConversationLocked(convID); conv != nil {
		for i := range conv.Messages {
			msg := &conv.Messages[i]
			if msg.ID != placeholderID {
				continue
			}
			if err != nil {
				msg.Content = assistantErrorText
				msg.Status = StatusError
			} else {
				actions := resp.EmailActions
				if len(actions) == 0 {
					actions = DetectEmailActions(resp.Response, c.log)
				}
				msg.Content = StripEmailActionBlocks(resp.Response)
				msg.Status = StatusSent
				msg.EmailActions = actions
				msg.ContextLength = resp.ContextLength
			}
			break
		}
		conv.UpdatedAt = time.Now()
	}
	c.mu.Unlock()

	c.saver.Schedule()

	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// deriveTitle truncates the first message to the title budget, marking
// truncation with an ellipsis.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit-3]) + "..."
}

// UploadFiles posts each file to the ingestion endpoint, surfacing
// progress and completion as synthesized assistant messages in the
// active conversation.
func (c *Container) UploadFiles(ctx context.Context, paths []string) {
	for _, path := range paths {
		name := filepath.Base(path)
		msgID, ok := c.appendProgressMessage(fmt.Sprintf("📤 Uploading %s...", name))
		if !ok {
			c.log.Debug().Msg("upload ignored: no active conversation")
			return
		}

		resp, err := c.backend.UploadPDF(ctx, path)
		if err != nil {
			c.resolveProgressMessage(msgID, fmt.Sprintf("❌ Failed to upload %s: %v", name, err), StatusError)
			continue
		}
		c.resolveProgressMessage(msgID,
			fmt.Sprintf("✅ Uploaded %s (%d bytes). It will appear in the knowledge base after the next sync.", resp.OriginalFilename, resp.Size),
			StatusSent)
	}
}

// UploadPDFFromURL asks the backend to ingest a document by URL,
// surfacing the outcome as a synthesized assistant message.
func (c *Container) UploadPDFFromURL(ctx context.Context, pdfURL string) {
	msgID, ok := c.appendProgressMessage(fmt.Sprintf("🔗 Ingesting %s...", pdfURL))
	if !ok {
		c.log.Debug().Msg("url upload ignored: no active conversation")
		return
	}

	resp, err := c.backend.UploadURL(ctx, pdfURL)
	if err != nil {
		c.resolveProgressMessage(msgID, fmt.Sprintf("❌ Failed to ingest %s: %v", pdfURL, err), StatusError)
		return
	}
	c.resolveProgressMessage(msgID,
		fmt.Sprintf("✅ Ingested %s (%d bytes) into %s.", resp.OriginalFilename, resp.Size, resp.TableName),
		StatusSent)
}

// appendProgressMessage adds a streaming assistant message to the
// active conversation and returns its id.
func (c *Container) appendProgressMessage(text string) (string, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.activeConversationLocked()
	if conv == nil {
		return "", false
	}
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   text,
		Timestamp: now,
		Status:    StatusStreaming,
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now
	return msg.ID, true
}

// resolveProgressMessage replaces a progress message's text and status
// in place, wherever the message still lives.
func (c *Container) resolveProgressMessage(messageID, text string, status MessageStatus) {
	c.mu.Lock()
	for _, conv := range c.conversations {
		for i := range conv.Messages {
			if conv.Messages[i].ID == messageID {
				conv.Messages[i].Content = text
				conv.Messages[i].Status = status
				conv.UpdatedAt = time.Now()
				c.mu.Unlock()
				c.saver.Schedule()
				return
			}
		}
	}
	c.mu.Unlock()
}
