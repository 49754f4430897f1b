// Package recents persists the recovery signal: each document's dirty state
// at the moment it was last closed, backing a startup recovery dialog.
package recents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

var bucketRecents = []byte("recents")

// Entry is one document's recovery record.
type Entry struct {
	Path            string    `json:"path"`
	DocID           string    `json:"docId"`
	LastClosedDirty bool      `json:"lastClosedDirty"`
	LastClosedAt    time.Time `json:"lastClosedAt"`
}

// Store is a durable, BoltDB-backed recent-documents store.
type Store struct {
	db *bolt.DB
}

// Open creates the parent directory if needed and opens (or creates) the
// BoltDB file at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recents: failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("recents: failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recents: failed to create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put records an entry keyed by path.
func (s *Store) Put(entry Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecents)
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("recents: failed to marshal entry: %w", err)
		}
		return b.Put([]byte(entry.Path), data)
	})
}

// Get returns the entry for path, or (Entry{}, false) when absent.
func (s *Store) Get(path string) (Entry, bool, error) {
	var entry Entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecents)
		data := b.Get([]byte(path))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("recents: failed to get entry for %q: %w", path, err)
	}
	return entry, found, nil
}

// ClearDirty clears the dirty flag for path, used when the user dismisses
// the recovery dialog without reopening.
func (s *Store) ClearDirty(path string) error {
	entry, found, err := s.Get(path)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	entry.LastClosedDirty = false
	return s.Put(entry)
}

// Dirty returns every entry whose LastClosedDirty flag is set, driving the
// startup recovery dialog.
func (s *Store) Dirty() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecents)
		return b.ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("recents: failed to unmarshal entry: %w", err)
			}
			if entry.LastClosedDirty {
				entries = append(entries, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("recents: failed to scan dirty entries: %w", err)
	}
	return entries, nil
}
