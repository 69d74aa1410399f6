// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// password.go - Argon2id password hashing for credkeep.
//
// Hashes are stored in the standard encoded form
// $argon2id$v=19$m=<KiB>,t=<time>,p=<threads>$<salt>$<digest>
// so every hash carries its own parameters and can be verified after the
// defaults change.
package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Argon2MinMemoryKiB is the floor for the Argon2id memory cost: 64 MiB.
	// Configuration may raise the cost but never lower it below this.
	Argon2MinMemoryKiB = 64 * 1024

	// Argon2MinTime is the floor for the Argon2id time cost.
	Argon2MinTime = 3

	// argon2Version is the only Argon2 version this package emits or accepts.
	argon2Version = argon2.Version
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrMalformedHash is returned internally when an encoded hash cannot
	// be parsed. VerifyPassword swallows it and reports false.
	ErrMalformedHash = errors.New("malformed password hash")
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Argon2Params holds the Argon2id cost parameters. The zero value is not
// usable; call DefaultArgon2Params or take values from config.
type Argon2Params struct {
	MemoryKiB   uint32 `json:"memory_kib"`
	Time        uint32 `json:"time"`
	Parallelism uint8  `json:"parallelism"`
	SaltLength  uint32 `json:"salt_length"`
	KeyLength   uint32 `json:"key_length"`
}

// DefaultArgon2Params returns the credkeep defaults: 64 MiB memory,
// time cost 3, single lane, 16-byte salt, 32-byte digest.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   Argon2MinMemoryKiB,
		Time:        Argon2MinTime,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Clamp raises any parameter below the security floor back to the floor.
// Costs can be configured upward, never downward.
func (p Argon2Params) Clamp() Argon2Params {
	if p.MemoryKiB < Argon2MinMemoryKiB {
		p.MemoryKiB = Argon2MinMemoryKiB
	}
	if p.Time < Argon2MinTime {
		p.Time = Argon2MinTime
	}
	if p.Parallelism < 1 {
		p.Parallelism = 1
	}
	if p.SaltLength < 16 {
		p.SaltLength = 16
	}
	if p.KeyLength < 32 {
		p.KeyLength = 32
	}
	return p
}

// =============================================================================
// HASHING
// =============================================================================

// HashPassword hashes a password with Argon2id and returns the encoded hash.
// A fresh random salt is generated on every call, so hashing the same
// password twice yields two different strings.
func HashPassword(password string, params Argon2Params) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	params = params.Clamp()

	salt, err := RandomBytes(int(params.SaltLength))
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		params.MemoryKiB,
		params.Time,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// VerifyPassword reports whether password matches the encoded Argon2id hash.
// The comparison is constant time. Malformed hashes verify as false; they
// never panic and never reveal which part of the parse failed.
func VerifyPassword(password, encoded string) bool {
	params, salt, digest, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, uint32(len(digest)))

	return subtle.ConstantTimeCompare(computed, digest) == 1
}

// decodeHash parses the standard encoded Argon2id form back into its parts.
func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2Version {
		return params, nil, nil, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Time, &params.Parallelism); err != nil {
		return params, nil, nil, ErrMalformedHash
	}
	if params.MemoryKiB == 0 || params.Time == 0 || params.Parallelism == 0 {
		return params, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, ErrMalformedHash
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return params, nil, nil, ErrMalformedHash
	}

	return params, salt, digest, nil
}
