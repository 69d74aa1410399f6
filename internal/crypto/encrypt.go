// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// encrypt.go - AES-256-GCM authenticated encryption and PBKDF2 key
// derivation for the credkeep vault.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// IVSize is the size of the IV for AES-GCM (12 bytes / 96 bits).
const IVSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits).
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes).
const SaltSize = 32

// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation.
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256 to provide adequate
// resistance against brute-force attacks with modern hardware.
const PBKDF2Iterations = 600000

// PBKDF2MinIterations is the floor below which configuration cannot lower
// the iteration count.
const PBKDF2MinIterations = 100000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDecryptionFailed indicates decryption failed: tampered data,
	// wrong key, or wrong IV. No plaintext is ever returned alongside it.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")

	// ErrInvalidKeySize indicates the key is not a valid AES-256 key.
	ErrInvalidKeySize = errors.New("invalid key size: want 32 bytes")

	// ErrInvalidIVSize indicates the IV is not 96 bits.
	ErrInvalidIVSize = errors.New("invalid iv size: want 12 bytes")
)

// =============================================================================
// SECURITY HELPER FUNCTIONS
// =============================================================================

// ZeroBytes securely zeros sensitive byte slices to prevent memory disclosure.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// KEY DERIVATION
// =============================================================================

// DeriveKey derives the 256-bit vault encryption key from a master password
// and salt using PBKDF2-SHA-256. Deterministic for a fixed (password, salt)
// pair; different salts yield unrelated keys.
func DeriveKey(password string, salt []byte) []byte {
	return DeriveKeyN(password, salt, PBKDF2Iterations)
}

// DeriveKeyN is DeriveKey with an explicit iteration count, clamped to the
// security floor. Config raises the count; it cannot lower it.
func DeriveKeyN(password string, salt []byte, iterations int) []byte {
	if iterations < PBKDF2MinIterations {
		iterations = PBKDF2MinIterations
	}
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
}

// =============================================================================
// ENCRYPTION
// =============================================================================

// Encrypt seals plaintext with AES-256-GCM under key. A fresh random 96-bit
// IV is generated per call, so encrypting the same plaintext twice yields
// different ciphertext. The returned ciphertext includes the authentication
// tag; the IV is returned separately so callers can store it alongside.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	iv, err = RandomBytes(IVSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	ciphertext = aead.Seal(nil, iv, plaintext, nil)
	return ciphertext, iv, nil
}

// Decrypt opens ciphertext produced by Encrypt. If the authentication tag
// does not verify, it returns ErrDecryptionFailed and no data.
func Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// newGCM builds the AES-256-GCM AEAD for a key, rejecting non-256-bit keys.
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	return aead, nil
}
