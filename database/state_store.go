package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"board-relay/state"
)

// StateStore reads and atomically replaces the persisted state document.
type StateStore struct {
	path  string
	mutex sync.Mutex
}

// NewStateStore creates a store for the given file.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file.
func (ss *StateStore) Path() string {
	return ss.path
}

// Load reads and normalizes the state document.
func (ss *StateStore) Load() (*state.Document, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	data, err := os.ReadFile(ss.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", ss.path, err)
	}

	var doc state.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", ss.path, err)
	}
	doc.Normalize()
	return &doc, nil
}

// Save writes the document to a temporary file in the same directory,
// syncs it and renames it over the previous version.
func (ss *StateStore) Save(doc *state.Document) error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	dir := filepath.Dir(ss.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(ss.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := os.Rename(tmpName, ss.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
