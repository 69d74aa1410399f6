// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// random.go - Cryptographically secure random generation for credkeep.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// TokenSize is the size of an opaque session token (32 bytes / 256 bits).
const TokenSize = 32

// RandomBytes returns n cryptographically secure random bytes.
// Returns an error if crypto/rand fails; callers must not fall back to a
// weaker source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("cryptographic random generation failed: %w", err)
	}
	return b, nil
}

// RandomSalt returns a fresh key-derivation salt.
func RandomSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// RandomToken returns an opaque hex-encoded token suitable for session
// identifiers (256 bits of entropy).
func RandomToken() (string, error) {
	b, err := RandomBytes(TokenSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewID returns a new random identifier for accounts, entries, and events.
func NewID() string {
	return uuid.NewString()
}
