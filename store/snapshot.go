package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the current export format version.
const SnapshotVersion = 1

// Snapshot is a full portable copy of all persisted collections.
type Snapshot struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Data       SnapshotData `json:"data"`
}

// SnapshotData carries the records of every collection.
type SnapshotData struct {
	Conversations   []json.RawMessage `json:"conversations"`
	Integrations    []json.RawMessage `json:"integrations"`
	Preferences     json.RawMessage   `json:"preferences,omitempty"`
	Filters         []json.RawMessage `json:"filters"`
	SavedViews      []json.RawMessage `json:"savedViews,omitempty"`
	EmailRecipients json.RawMessage   `json:"emailRecipients,omitempty"`
}

// ExportSnapshot serializes all collections into a single portable
// document.
func (s *Store) ExportSnapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
	}

	var err error
	if snap.Data.Conversations, err = s.GetAll(Conversations); err != nil {
		return nil, err
	}
	if snap.Data.Integrations, err = s.GetAll(Integrations); err != nil {
		return nil, err
	}
	if snap.Data.Filters, err = s.GetAll(Filters); err != nil {
		return nil, err
	}
	if snap.Data.SavedViews, err = s.GetAll(SavedViews); err != nil {
		return nil, err
	}
	if snap.Data.Preferences, err = s.Get(Preferences, PreferencesKey); err != nil {
		return nil, err
	}
	if snap.Data.EmailRecipients, err = s.Get(EmailRecipients, RecipientsKey); err != nil {
		return nil, err
	}

	return snap, nil
}

// ImportSnapshot validates the document and upserts every contained
// record into its matching collection. Import is additive: records
// already in storage but absent from the document remain untouched.
func (s *Store) ImportSnapshot(doc []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if snap.Version < 1 || snap.Version > SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedImport, snap.Version)
	}

	if err := s.importKeyed(Conversations, "id", snap.Data.Conversations); err != nil {
		return err
	}
	if err := s.importKeyed(Integrations, "type", snap.Data.Integrations); err != nil {
		return err
	}
	if err := s.importKeyed(Filters, "id", snap.Data.Filters); err != nil {
		return err
	}
	if err := s.importKeyed(SavedViews, "id", snap.Data.SavedViews); err != nil {
		return err
	}
	if len(snap.Data.Preferences) > 0 {
		if err := s.Put(Preferences, PreferencesKey, snap.Data.Preferences); err != nil {
			return err
		}
	}
	if len(snap.Data.EmailRecipients) > 0 {
		if err := s.Put(EmailRecipients, RecipientsKey, snap.Data.EmailRecipients); err != nil {
			return err
		}
	}

	return nil
}

// importKeyed upserts raw records using the named field as the record
// key. Records missing the key field are skipped and logged, never
// fatal: the rest of the document still imports.
func (s *Store) importKeyed(collection, keyField string, records []json.RawMessage) error {
	for _, raw := range records {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			s.log.Warn().Err(err).Str("collection", collection).Msg("skipping unparsable record in import")
			continue
		}
		var key string
		if err := json.Unmarshal(fields[keyField], &key); err != nil || key == "" {
			s.log.Warn().Str("collection", collection).Msg("skipping record without key in import")
			continue
		}
		if err := s.Put(collection, key, raw); err != nil {
			return err
		}
	}
	return nil
}
