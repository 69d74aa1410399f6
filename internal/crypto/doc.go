// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package crypto provides the cryptographic primitives for credkeep.
//
// This package implements:
//   - Argon2id password hashing with self-describing encoded hashes
//   - PBKDF2-SHA-256 key derivation for the vault encryption key
//   - AES-256-GCM authenticated encryption
//   - Cryptographically secure random generation (salts, tokens, IDs)
//
// # Key Functions
//
//   - HashPassword / VerifyPassword: account password storage
//   - DeriveKey: master password -> 256-bit vault key
//   - Encrypt / Decrypt: vault blob protection
//
// # Usage
//
// Hash a password at registration and verify it at login:
//
//	encoded, err := crypto.HashPassword(password, crypto.DefaultArgon2Params())
//	ok := crypto.VerifyPassword(password, encoded)
//
// Derive the vault key and seal the vault blob:
//
//	key := crypto.DeriveKey(masterPassword, salt)
//	defer crypto.ZeroBytes(key)
//	ciphertext, iv, err := crypto.Encrypt(plaintext, key)
//
// Verification never panics on malformed input: a hash that cannot be
// parsed simply fails verification.
package crypto
