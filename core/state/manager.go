package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"quickart/storage"
)

// Manager wraps the raw key-value store with typed accessors for every record
// family the ledger persists: accounts, registry tokens, market listings and
// the ledger counters. Values are stored JSON-encoded under prefixed keys so
// the mapping and counters survive process restarts.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet decodes the value stored under key into out. It returns false with a
// nil error when the key is absent.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state: manager not initialised")
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut stores the JSON encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager not initialised")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, raw)
}
