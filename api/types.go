package api

// ConversationMessage is one turn of prior history sent for context.
type ConversationMessage struct {
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRequest is the body of a chat turn.
type ChatRequest struct {
	Message             string                `json:"message"`
	ConversationID      string                `json:"conversation_id,omitempty"`
	ConversationHistory []ConversationMessage `json:"conversation_history,omitempty"`
	Stream              bool                  `json:"stream"`
}

// ChatResponse is the backend's answer to a chat turn.
type ChatResponse struct {
	Response      string        `json:"response"`
	EmailActions  []EmailAction `json:"email_actions,omitempty"`
	Streaming     bool          `json:"streaming"`
	ContextLength int           `json:"context_length"`
}

// EmailAction is a machine-actionable email directive, either returned
// by the backend or extracted from assistant response text.
type EmailAction struct {
	Type       string   `json:"type"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Datetime   string   `json:"datetime,omitempty"`
}

// TableInfo describes a table in a connected data source.
type TableInfo struct {
	Name        string   `json:"name"`
	Schema      string   `json:"schema,omitempty"`
	RowCount    *int64   `json:"row_count,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Description string   `json:"description,omitempty"`
}

// IntegrationCreateRequest creates a named integration instance.
type IntegrationCreateRequest struct {
	IntegrationType  string         `json:"integration_type"`
	DatabaseName     string         `json:"database_name"`
	InstanceName     string         `json:"instance_name"`
	ConnectionParams map[string]any `json:"connection_params"`
	SelectedTables   []string       `json:"selected_tables,omitempty"`
	Enabled          bool           `json:"enabled"`
}

// IntegrationCreateResponse carries the backend-confirmed instance.
type IntegrationCreateResponse struct {
	ID              string      `json:"id"`
	DatabaseName    string      `json:"database_name"`
	ItemCount       *int64      `json:"item_count,omitempty"`
	Description     string      `json:"description,omitempty"`
	AvailableTables []TableInfo `json:"available_tables,omitempty"`
	SelectedTables  []string    `json:"selected_tables,omitempty"`
}

// IntegrationTestRequest probes a connection without persisting it.
type IntegrationTestRequest struct {
	IntegrationType  string         `json:"integration_type"`
	DatabaseName     string         `json:"database_name"`
	InstanceName     string         `json:"instance_name"`
	ConnectionParams map[string]any `json:"connection_params"`
}

// SyncResult summarizes a knowledge-base synchronization run.
type SyncResult struct {
	Status             string   `json:"status"`
	SyncTime           string   `json:"sync_time"`
	TotalSources       int      `json:"total_sources"`
	NewSources         int      `json:"new_sources"`
	UpdatedSources     int      `json:"updated_sources"`
	RemovedSources     int      `json:"removed_sources"`
	NewSourceNames     []string `json:"new_source_names,omitempty"`
	RemovedSourceNames []string `json:"removed_source_names,omitempty"`
}

// UploadResponse describes an ingested file.
type UploadResponse struct {
	Filename         string `json:"filename,omitempty"`
	OriginalFilename string `json:"original_filename"`
	Size             int64  `json:"size"`
	TableName        string `json:"table_name,omitempty"`
}

// EmailSendResponse is the result of an immediate or scheduled send.
type EmailSendResponse struct {
	Status            string   `json:"status"`
	Message           string   `json:"message,omitempty"`
	Recipients        []string `json:"recipients"`
	Subject           string   `json:"subject"`
	ScheduledDatetime string   `json:"scheduled_datetime,omitempty"`
}

// KBRowsPage is one page of knowledge-base rows.
type KBRowsPage struct {
	Rows       []map[string]any `json:"rows"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

// KBDeleteResult reports a bulk row deletion.
type KBDeleteResult struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deleted_count"`
	FailedCount  int  `json:"failed_count"`
}
