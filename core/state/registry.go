package state

import (
	"quickart/native/registry"
)

// TokenPut persists a registry token record.
func (m *Manager) TokenPut(token *registry.Token) error {
	return m.KVPut(tokenKey(token.ID), token)
}

// TokenGet loads the token stored for the identifier.
func (m *Manager) TokenGet(id uint64) (*registry.Token, bool) {
	var stored registry.Token
	ok, err := m.KVGet(tokenKey(id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &stored, true
}

// TokenCount returns the highest identifier issued so far.
func (m *Manager) TokenCount() (uint64, error) {
	var count uint64
	if _, err := m.KVGet(tokenCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetTokenCount records the highest issued identifier.
func (m *Manager) SetTokenCount(count uint64) error {
	return m.KVPut(tokenCountKey, count)
}
