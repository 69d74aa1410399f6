// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the persistence layer for credkeep.
//
// All durable state (accounts, sessions, encrypted vault blobs, security
// events) is kept as opaque values under string keys. The interface is a
// small key-value contract so that the engine never depends on the storage
// backend directly.
//
// # Key Types
//
//   - Store: the key-value contract (Get, Set, Delete, List, Close)
//   - SQLiteStore: durable implementation backed by modernc.org/sqlite
//   - MemoryStore: in-memory implementation for tests
//   - Watcher: fsnotify-based detection of external database modification
//
// # Keys
//
// Logical keys follow a fixed naming scheme:
//
//	accounts            all registered accounts
//	sessions            all active sessions
//	vault:{accountID}   one account's encrypted vault blob
//	securityEvents      the append-only audit log
//
// # Usage
//
//	st, err := store.OpenSQLite(path)
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	if err := st.Set(store.KeyAccounts, data); err != nil {
//		return err
//	}
package store
