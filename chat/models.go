// Package chat holds the conversation state container: the single
// source of truth for session state. Every mutation flows through the
// Container; the store holds a durable replica written asynchronously.
package chat

import (
	"time"

	"contract-intel-client/api"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageStatus is the lifecycle state of a message.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusError     MessageStatus = "error"
	StatusStreaming MessageStatus = "streaming"
)

// Message is a single message in a conversation. An assistant
// placeholder in streaming status is replaced in place (same ID) by a
// terminal sent or error message when the remote call resolves.
type Message struct {
	ID            string              `json:"id"`
	Role          string              `json:"role"`
	Content       string              `json:"content"`
	Timestamp     time.Time           `json:"timestamp"`
	Status        MessageStatus       `json:"status"`
	Reactions     map[string][]string `json:"reactions,omitempty"` // emoji -> reactor ids
	Scope         string              `json:"scope,omitempty"`
	EmailActions  []api.EmailAction   `json:"email_actions,omitempty"`
	ContextLength int                 `json:"context_length,omitempty"`
}

// Conversation is an ordered thread of messages. Insertion order is
// display order; deletion removes by id without reordering the rest.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tags      []string  `json:"tags,omitempty"`
}

// InstanceStatus is the lifecycle state of an integration instance.
type InstanceStatus string

const (
	InstanceNotConnected InstanceStatus = "not-connected"
	InstanceConnecting   InstanceStatus = "connecting"
	InstanceConnected    InstanceStatus = "connected"
	InstanceError        InstanceStatus = "error"
)

// IntegrationInstance is one named, configured connection of an
// integration type.
type IntegrationInstance struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	DatabaseName     string          `json:"databaseName"`
	Status           InstanceStatus  `json:"status"`
	ConnectionParams map[string]any  `json:"connectionParams,omitempty"`
	SelectedTables   []string        `json:"selectedTables,omitempty"`
	AvailableTables  []api.TableInfo `json:"availableTables,omitempty"`
	LastSync         *time.Time      `json:"lastSync,omitempty"`
	ItemCount        *int64          `json:"itemCount,omitempty"`
	ErrorMessage     string          `json:"errorMessage,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Integration is a connector type with zero or more configured
// instances. Persisted by type, embedding all its instances.
type Integration struct {
	Type      string                `json:"type"`
	Name      string                `json:"name"`
	Icon      string                `json:"icon"`
	Instances []IntegrationInstance `json:"instances"`
}

// Preferences is the process-wide user preferences singleton.
type Preferences struct {
	Theme        string `json:"theme"`
	Density      string `json:"density"`
	HighContrast bool   `json:"highContrast"`
	ReduceMotion bool   `json:"reduceMotion"`
	AutoSave     bool   `json:"autoSave"`
	DefaultView  string `json:"defaultView"`
}

// PreferencesPatch shallow-merges into the preferences singleton; nil
// fields are left untouched.
type PreferencesPatch struct {
	Theme        *string
	Density      *string
	HighContrast *bool
	ReduceMotion *bool
	AutoSave     *bool
	DefaultView  *string
}

// DefaultPreferences returns the preferences used before any are
// stored.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:       "light",
		Density:     "comfortable",
		AutoSave:    true,
		DefaultView: "chat",
	}
}

// clone returns a deep copy so callers never share mutable state with
// the container.
func (m Message) clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			out.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	out.EmailActions = append([]api.EmailAction(nil), m.EmailActions...)
	return out
}

func (c Conversation) clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.clone()
	}
	out.Tags = append([]string(nil), c.Tags...)
	return out
}

func (i IntegrationInstance) clone() IntegrationInstance {
	out := i
	if i.ConnectionParams != nil {
		out.ConnectionParams = make(map[string]any, len(i.ConnectionParams))
		for k, v := range i.ConnectionParams {
			out.ConnectionParams[k] = v
		}
	}
	out.SelectedTables = append([]string(nil), i.SelectedTables...)
	out.AvailableTables = append([]api.TableInfo(nil), i.AvailableTables...)
	if i.LastSync != nil {
		t := *i.LastSync
		out.LastSync = &t
	}
	if i.ItemCount != nil {
		n := *i.ItemCount
		out.ItemCount = &n
	}
	return out
}

func (g Integration) clone() Integration {
	out := g
	out.Instances = make([]IntegrationInstance, len(g.Instances))
	for i, inst := range g.Instances {
		out.Instances[i] = inst.clone()
	}
	return out
}
