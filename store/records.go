package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Put upserts a record into a collection, keyed by its natural
// identifier. Last write wins; there is no versioning or merge.
// Concurrent writes to the same key race last-write-wins, which is
// acceptable for a single-process local-first design.
func (s *Store) Put(collection, key string, record any) error {
	if !validCollection(collection) {
		return fmt.Errorf("unknown collection: %s", collection)
	}
	if key == "" {
		return fmt.Errorf("record key is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, collection)
	if _, err := s.conn.Exec(stmt, key, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to put record %s/%s: %w", collection, key, err)
	}
	return nil
}

// Get reads a single record. A missing record yields (nil, nil), never
// an error.
func (s *Store) Get(collection, key string) (json.RawMessage, error) {
	if !validCollection(collection) {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}

	var data string
	err := s.conn.QueryRow(
		fmt.Sprintf("SELECT data FROM %s WHERE key = ?", collection), key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s/%s: %w", collection, key, err)
	}
	return json.RawMessage(data), nil
}

// GetAll reads every record in a collection. An empty collection yields
// an empty slice.
func (s *Store) GetAll(collection string) ([]json.RawMessage, error) {
	if !validCollection(collection) {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}

	rows, err := s.conn.Query(fmt.Sprintf("SELECT data FROM %s ORDER BY key", collection))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	records := make([]json.RawMessage, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	return records, nil
}

// Delete removes a record. Deleting an absent record is a no-op, not an
// error.
func (s *Store) Delete(collection, key string) error {
	if !validCollection(collection) {
		return fmt.Errorf("unknown collection: %s", collection)
	}
	if _, err := s.conn.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", collection), key); err != nil {
		return fmt.Errorf("failed to delete record %s/%s: %w", collection, key, err)
	}
	return nil
}
