package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"contract-intel-client/api"
	"contract-intel-client/store"
)

// ErrSendInFlight is returned when a second send is issued on a
// conversation whose placeholder has not resolved yet.
var ErrSendInFlight = errors.New("a send is already in flight for this conversation")

// ErrNotInitialized is returned when an operation runs before
// Initialize.
var ErrNotInitialized = errors.New("container not initialized")

// localUser identifies the single local user for reaction toggles.
const localUser = "local-user"

// Backend is the slice of the remote API the container drives.
// *api.Client satisfies it; tests substitute fakes.
type Backend interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	CreateIntegration(ctx context.Context, req api.IntegrationCreateRequest) (*api.IntegrationCreateResponse, error)
	DeleteIntegration(ctx context.Context, databaseName string) error
	TestIntegration(ctx context.Context, req api.IntegrationTestRequest) bool
	SyncIntegration(ctx context.Context, databaseName string) error
	ListTables(ctx context.Context, databaseName string) ([]api.TableInfo, error)
	UploadPDF(ctx context.Context, filePath string) (*api.UploadResponse, error)
	UploadURL(ctx context.Context, pdfURL string) (*api.UploadResponse, error)
}

// Container owns the in-memory canonical copy of all entities for the
// session. Every mutation takes the container lock; remote calls run
// with the lock released and reconcile by id afterwards.
type Container struct {
	mu sync.Mutex

	backend Backend
	db      *store.Store // nil means in-memory-only session
	log     zerolog.Logger
	saver   *Saver

	conversations []*Conversation
	activeID      string
	integrations  []*Integration
	prefs         Preferences
	inFlight      map[string]bool // conversation id -> unresolved send
	initialized   bool
}

// New creates a container. db may be nil for an in-memory-only session.
func New(backend Backend, db *store.Store, quietPeriod time.Duration, logger zerolog.Logger) *Container {
	c := &Container{
		backend:  backend,
		db:       db,
		log:      logger,
		prefs:    DefaultPreferences(),
		inFlight: make(map[string]bool),
	}
	c.saver = NewSaver(quietPeriod, c.persistSnapshot)
	return c
}

// Initialize loads the durable replica and merges stored integrations
// against the catalog. A failed load degrades to an empty-but-usable
// state (empty conversations, catalog-only integrations) rather than
// leaving the container unusable.
func (c *Container) Initialize(ctx context.Context) error {
	c.mu.Lock()
	c.integrations = catalogPointers()
	if c.db != nil {
		if err := c.loadLocked(); err != nil {
			c.log.Warn().Err(err).Msg("failed to load persisted state, starting empty")
			c.conversations = nil
			c.integrations = catalogPointers()
			c.prefs = DefaultPreferences()
		}
	}
	c.initialized = true
	c.mu.Unlock()

	// Persist once at startup so a fresh database reflects the merged
	// catalog immediately.
	if c.db != nil {
		c.saver.Flush()
	}
	return nil
}

// Close releases the autosave timer and flushes pending state.
func (c *Container) Close() {
	if c.db != nil {
		c.saver.Flush()
	}
	c.saver.Close()
}

// loadLocked reads conversations, integrations and preferences from the
// store. Caller holds the lock.
func (c *Container) loadLocked() error {
	rawConvs, err := c.db.GetAll(store.Conversations)
	if err != nil {
		return err
	}
	conversations := make([]*Conversation, 0, len(rawConvs))
	for _, raw := range rawConvs {
		var conv Conversation
		if err := json.Unmarshal(raw, &conv); err != nil {
			c.log.Warn().Err(err).Msg("skipping unreadable conversation record")
			continue
		}
		conversations = append(conversations, &conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	c.conversations = conversations

	// Union by type: every catalog type stays visible, stored instance
	// data wins when present.
	rawIntegs, err := c.db.GetAll(store.Integrations)
	if err != nil {
		return err
	}
	stored := make(map[string]*Integration, len(rawIntegs))
	for _, raw := range rawIntegs {
		var integ Integration
		if err := json.Unmarshal(raw, &integ); err != nil {
			c.log.Warn().Err(err).Msg("skipping unreadable integration record")
			continue
		}
		stored[integ.Type] = &integ
	}
	merged := catalogPointers()
	for _, integ := range merged {
		if loaded, ok := stored[integ.Type]; ok {
			integ.Instances = loaded.Instances
			delete(stored, integ.Type)
		}
	}
	for _, integ := range stored {
		merged = append(merged, integ)
	}
	c.integrations = merged

	rawPrefs, err := c.db.Get(store.Preferences, store.PreferencesKey)
	if err != nil {
		return err
	}
	if rawPrefs != nil {
		prefs := DefaultPreferences()
		if err := json.Unmarshal(rawPrefs, &prefs); err != nil {
			c.log.Warn().Err(err).Msg("ignoring unreadable preferences record")
		} else {
			c.prefs = prefs
		}
	}
	return nil
}

func catalogPointers() []*Integration {
	catalog := Catalog()
	out := make([]*Integration, len(catalog))
	for i := range catalog {
		integ := catalog[i]
		out[i] = &integ
	}
	return out
}

// persistSnapshot writes the debounced snapshot of conversations and
// preferences. Integrations persist directly on their own transitions.
func (c *Container) persistSnapshot() {
	if c.db == nil {
		return
	}

	c.mu.Lock()
	conversations := make([]Conversation, 0, len(c.conversations))
	for _, conv := range c.conversations {
		conversations = append(conversations, conv.clone())
	}
	prefs := c.prefs
	c.mu.Unlock()

	for i := range conversations {
		if err := c.db.Put(store.Conversations, conversations[i].ID, &conversations[i]); err != nil {
			c.log.Warn().Err(err).Str("conversation", conversations[i].ID).Msg("autosave failed")
		}
	}
	if err := c.db.Put(store.Preferences, store.PreferencesKey, &prefs); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist preferences")
	}
}

// persistIntegrationLocked writes one integration record. Caller holds
// the lock.
func (c *Container) persistIntegrationLocked(integ *Integration) {
	if c.db == nil {
		return
	}
	if err := c.db.Put(store.Integrations, integ.Type, integ); err != nil {
		c.log.Warn().Err(err).Str("type", integ.Type).Msg("failed to persist integration")
	}
}

// CreateConversation prepends a new empty conversation and makes it
// active.
func (c *Container) CreateConversation(title string) Conversation {
	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.mu.Lock()
	c.conversations = append([]*Conversation{conv}, c.conversations...)
	c.activeID = conv.ID
	snapshot := conv.clone()
	c.mu.Unlock()

	c.saver.Schedule()
	return snapshot
}

// DeleteConversation removes a conversation; if it was active the
// selection is cleared. The store record is deleted immediately.
func (c *Container) DeleteConversation(id string) {
	c.mu.Lock()
	for i, conv := range c.conversations {
		if conv.ID == id {
			c.conversations = append(c.conversations[:i], c.conversations[i+1:]...)
			break
		}
	}
	if c.activeID == id {
		c.activeID = ""
	}
	c.mu.Unlock()

	if c.db != nil {
		if err := c.db.Delete(store.Conversations, id); err != nil {
			c.log.Warn().Err(err).Str("conversation", id).Msg("failed to delete stored conversation")
		}
	}
}

// RenameConversation updates the title. A blank or whitespace-only
// title is a no-op: nothing mutates, not even updatedAt.
func (c *Container) RenameConversation(id, title string) {
	if strings.TrimSpace(title) == "" {
		return
	}

	c.mu.Lock()
	if conv := c.findConversationLocked(id); conv != nil {
		conv.Title = title
		conv.UpdatedAt = time.Now()
	}
	c.mu.Unlock()

	c.saver.Schedule()
}

// SetActiveConversation changes the selection; an empty id clears it.
func (c *Container) SetActiveConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" {
		c.activeID = ""
		return
	}
	if c.findConversationLocked(id) != nil {
		c.activeID = id
	}
}

// DeleteMessage removes a message from the active conversation only.
func (c *Container) DeleteMessage(messageID string) {
	c.mu.Lock()
	if conv := c.activeConversationLocked(); conv != nil {
		for i, msg := range conv.Messages {
			if msg.ID == messageID {
				conv.Messages = append(conv.Messages[:i], conv.Messages[i+1:]...)
				conv.UpdatedAt = time.Now()
				break
			}
		}
	}
	c.mu.Unlock()

	c.saver.Schedule()
}

// AddReaction toggles the local user's membership in the emoji's
// reactor set: add if absent, remove if present.
func (c *Container) AddReaction(messageID, emoji string) {
	c.mu.Lock()
	conv := c.activeConversationLocked()
	if conv == nil {
		c.mu.Unlock()
		return
	}
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		if msg.ID != messageID {
			continue
		}
		if msg.Reactions == nil {
			msg.Reactions = make(map[string][]string)
		}
		users := msg.Reactions[emoji]
		removed := false
		for j, u := range users {
			if u == localUser {
				users = append(users[:j], users[j+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			users = append(users, localUser)
		}
		if len(users) == 0 {
			delete(msg.Reactions, emoji)
		} else {
			msg.Reactions[emoji] = users
		}
		conv.UpdatedAt = time.Now()
		break
	}
	c.mu.Unlock()

	c.saver.Schedule()
}

// UpdatePreferences shallow-merges the patch into the preferences
// singleton and persists it.
func (c *Container) UpdatePreferences(patch PreferencesPatch) Preferences {
	c.mu.Lock()
	if patch.Theme != nil {
		c.prefs.Theme = *patch.Theme
	}
	if patch.Density != nil {
		c.prefs.Density = *patch.Density
	}
	if patch.HighContrast != nil {
		c.prefs.HighContrast = *patch.HighContrast
	}
	if patch.ReduceMotion != nil {
		c.prefs.ReduceMotion = *patch.ReduceMotion
	}
	if patch.AutoSave != nil {
		c.prefs.AutoSave = *patch.AutoSave
	}
	if patch.DefaultView != nil {
		c.prefs.DefaultView = *patch.DefaultView
	}
	prefs := c.prefs
	c.mu.Unlock()

	if c.db != nil {
		if err := c.db.Put(store.Preferences, store.PreferencesKey, &prefs); err != nil {
			c.log.Warn().Err(err).Msg("failed to persist preferences")
		}
	}
	return prefs
}

// Conversations returns deep copies of all conversations in display
// order (most recently created or loaded first).
func (c *Container) Conversations() []Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Conversation, 0, len(c.conversations))
	for _, conv := range c.conversations {
		out = append(out, conv.clone())
	}
	return out
}

// ActiveConversation returns a copy of the selected conversation.
func (c *Container) ActiveConversation() (Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.activeConversationLocked()
	if conv == nil {
		return Conversation{}, false
	}
	return conv.clone(), true
}

// Conversation returns a copy of the conversation with the given id.
func (c *Container) Conversation(id string) (Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.findConversationLocked(id)
	if conv == nil {
		return Conversation{}, false
	}
	return conv.clone(), true
}

// Integrations returns deep copies of all integrations.
func (c *Container) Integrations() []Integration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Integration, 0, len(c.integrations))
	for _, integ := range c.integrations {
		out = append(out, integ.clone())
	}
	return out
}

// Preferences returns the current preferences.
func (c *Container) Preferences() Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// IsStreaming reports whether a send is unresolved on the conversation.
func (c *Container) IsStreaming(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[conversationID]
}

// SearchConversations returns copies of conversations whose title or
// message text contains the term, case-insensitively.
func (c *Container) SearchConversations(term string) []Conversation {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Conversation
	for _, conv := range c.conversations {
		if strings.Contains(strings.ToLower(conv.Title), needle) {
			out = append(out, conv.clone())
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), needle) {
				out = append(out, conv.clone())
				break
			}
		}
	}
	return out
}

func (c *Container) findConversationLocked(id string) *Conversation {
	for _, conv := range c.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func (c *Container) activeConversationLocked() *Conversation {
	if c.activeID == "" {
		return nil
	}
	return c.findConversationLocked(c.activeID)
}
