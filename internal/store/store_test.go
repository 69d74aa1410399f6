// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"path/filepath"
	"testing"
)

// newTestStores returns one store of each implementation, both cleaned
// up at test end.
func newTestStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "credkeep.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
	t.Cleanup(func() {
		for _, st := range stores {
			st.Close()
		}
	})
	return stores
}

// TestStoreRoundTrip tests Set/Get/Delete across both implementations.
func TestStoreRoundTrip(t *testing.T) {
	for name, st := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Set(KeyAccounts, []byte("payload")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			value, err := st.Get(KeyAccounts)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(value) != "payload" {
				t.Errorf("Got %q, want %q", value, "payload")
			}

			// Overwrite replaces.
			if err := st.Set(KeyAccounts, []byte("replaced")); err != nil {
				t.Fatalf("Second Set failed: %v", err)
			}
			value, err = st.Get(KeyAccounts)
			if err != nil {
				t.Fatalf("Get after overwrite failed: %v", err)
			}
			if string(value) != "replaced" {
				t.Errorf("Got %q after overwrite, want %q", value, "replaced")
			}

			if err := st.Delete(KeyAccounts); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := st.Get(KeyAccounts); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get after delete: got %v, want ErrKeyNotFound", err)
			}
		})
	}
}

// TestStoreMissingKey tests ErrKeyNotFound for absent keys.
func TestStoreMissingKey(t *testing.T) {
	for name, st := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := st.Get("never-written"); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Got %v, want ErrKeyNotFound", err)
			}

			// Deleting an absent key is not an error.
			if err := st.Delete("never-written"); err != nil {
				t.Errorf("Delete of absent key failed: %v", err)
			}
		})
	}
}

// TestStoreList tests prefix listing.
func TestStoreList(t *testing.T) {
	for name, st := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{VaultKey("b"), VaultKey("a"), KeySessions} {
				if err := st.Set(key, []byte("x")); err != nil {
					t.Fatalf("Set %q failed: %v", key, err)
				}
			}

			keys, err := st.List("vault:")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(keys) != 2 || keys[0] != "vault:a" || keys[1] != "vault:b" {
				t.Errorf("List returned %v, want [vault:a vault:b]", keys)
			}

			all, err := st.List("")
			if err != nil {
				t.Fatalf("List all failed: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("List all returned %d keys, want 3", len(all))
			}
		})
	}
}

// TestStoreClosed tests that operations fail after Close.
func TestStoreClosed(t *testing.T) {
	st := NewMemoryStore()
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := st.Get(KeyAccounts); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get on closed store: got %v, want ErrStoreClosed", err)
	}
	if err := st.Set(KeyAccounts, nil); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Set on closed store: got %v, want ErrStoreClosed", err)
	}
}

// TestSQLitePersistence tests that values survive reopen.
func TestSQLitePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credkeep.db")

	st, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := st.Set(VaultKey("acct"), []byte("ciphertext")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get(VaultKey("acct"))
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(value) != "ciphertext" {
		t.Errorf("Got %q after reopen, want %q", value, "ciphertext")
	}
}

// TestVaultKey tests the key scheme.
func TestVaultKey(t *testing.T) {
	if got := VaultKey("abc-123"); got != "vault:abc-123" {
		t.Errorf("VaultKey = %q, want vault:abc-123", got)
	}
}
