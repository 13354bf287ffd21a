package state

import (
	"quickart/core/types"
)

// GetAccount loads the account stored for the address. Unknown addresses
// resolve to a fresh zero-balance account rather than an error.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored types.Account
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	return stored.Normalize(), nil
}

// PutAccount persists the account under the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	return m.KVPut(accountKey(addr), account.Normalize())
}
