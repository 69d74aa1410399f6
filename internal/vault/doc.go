// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vault stores each account's credential entries as one
// encrypted blob.
//
// The whole entry list is serialized to JSON and encrypted under the
// account's derived vault key with AES-256-GCM; individual entries are
// never encrypted separately. The blob is versioned and the decoder
// rejects versions newer than it understands instead of guessing.
//
// Every operation takes the caller's session token. The vault key is
// fetched from the auth engine per operation, so an expired session
// fails before any ciphertext is touched. An entry belonging to another
// account is reported as not found, never as a permission error.
//
// # Key Types
//
//   - Store: CRUD, search, password-reuse lookup, export/import
//   - Entry: one stored credential
//   - EntryInput: caller-supplied entry fields
//
// # Usage
//
//	v := vault.NewStore(st, eng, logger)
//	entry, err := v.CreateEntry(token, vault.EntryInput{
//		Name:     "example",
//		URL:      "https://example.com",
//		Username: "alice",
//		Password: sitePassword,
//	})
package vault
