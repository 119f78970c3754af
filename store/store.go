// Package store provides durable local persistence for the chat client.
// Entities are kept as JSON documents, one collection per entity kind,
// inside a single SQLite database file.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrStorageUnavailable is returned when the local database cannot be
// opened or prepared. Callers are expected to degrade to an in-memory
// session rather than fail.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// ErrMalformedImport is returned when an import document cannot be
// parsed or lacks the expected top-level shape.
var ErrMalformedImport = errors.New("malformed import document")

// Collection names. One SQLite table backs each collection.
const (
	Conversations   = "conversations"
	Integrations    = "integrations"
	Preferences     = "preferences"
	Filters         = "filters"
	SavedViews      = "saved_views"
	EmailRecipients = "email_recipients"
)

// Singleton record keys.
const (
	PreferencesKey = "preferences"
	RecipientsKey  = "recipients"
)

var collections = []string{
	Conversations,
	Integrations,
	Preferences,
	Filters,
	SavedViews,
	EmailRecipients,
}

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
	log  zerolog.Logger
}

// Open opens (creating on first run) the local database and prepares
// one table per collection. Failures are wrapped in
// ErrStorageUnavailable.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrStorageUnavailable, err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageUnavailable, err)
	}

	// SQLite works best with a single connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn, log: logger}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// migrate creates the collection tables.
func (s *Store) migrate() error {
	for _, c := range collections {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, c)
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed for %s: %w", c, err)
		}
	}
	return nil
}

// validCollection reports whether name is a known collection.
func validCollection(name string) bool {
	for _, c := range collections {
		if c == name {
			return true
		}
	}
	return false
}

// Stats represents database statistics.
type Stats struct {
	RecordCounts map[string]int64
	DBSizeBytes  int64
}

// GetStats returns per-collection record counts and the database size.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{RecordCounts: make(map[string]int64, len(collections))}

	for _, c := range collections {
		var count int64
		if err := s.conn.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", c)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c, err)
		}
		stats.RecordCounts[c] = count
	}

	var pageCount, pageSize int64
	if err := s.conn.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := s.conn.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	stats.DBSizeBytes = pageCount * pageSize

	return stats, nil
}

// Vacuum optimizes the database file.
func (s *Store) Vacuum() error {
	if _, err := s.conn.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
