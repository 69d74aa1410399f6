// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrKeyNotFound is returned by Get when the key has no value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned by all operations after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// =============================================================================
// KEY SCHEME
// =============================================================================

const (
	// KeyAccounts holds the serialized account records.
	KeyAccounts = "accounts"

	// KeySessions holds the serialized active sessions.
	KeySessions = "sessions"

	// KeySecurityEvents holds the append-only audit log.
	KeySecurityEvents = "securityEvents"

	// vaultKeyPrefix scopes vault blobs per account.
	vaultKeyPrefix = "vault:"
)

// VaultKey returns the storage key for one account's encrypted vault blob.
func VaultKey(accountID string) string {
	return vaultKeyPrefix + accountID
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the key-value persistence contract.
//
// Values are opaque byte slices. Implementations must be safe for
// concurrent use and must return ErrKeyNotFound from Get when the key
// is absent.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set writes the value for key, replacing any existing value.
	Set(key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error

	// List returns all keys with the given prefix, sorted.
	List(prefix string) ([]string, error)

	// Close releases resources. The store is unusable afterwards.
	Close() error
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is a Store kept entirely in process memory.
//
// It backs tests and the ephemeral mode where nothing is persisted.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get returns the value for key, or ErrKeyNotFound.
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	// Copy so callers cannot mutate stored state.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set writes the value for key.
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Delete removes the key.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

// List returns all keys with the given prefix, sorted.
func (m *MemoryStore) List(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	keys := make([]string, 0)
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// =============================================================================
// WRITE HOOK
// =============================================================================

// hookedStore invokes a callback before every write. The file watcher
// uses it to tell own writes apart from external modifications.
type hookedStore struct {
	Store
	hook func()
}

// WithWriteHook wraps st so hook runs before every Set and Delete.
func WithWriteHook(st Store, hook func()) Store {
	return &hookedStore{Store: st, hook: hook}
}

func (h *hookedStore) Set(key string, value []byte) error {
	h.hook()
	return h.Store.Set(key, value)
}

func (h *hookedStore) Delete(key string) error {
	h.hook()
	return h.Store.Delete(key)
}
