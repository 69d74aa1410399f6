// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// backup.go - One-time backup codes for two-factor recovery.
//
// Codes are 8 characters from a 32-symbol alphabet that excludes the
// visually ambiguous 0/O and 1/I/l. Only SHA-256 hashes are stored; a code
// is compared in constant time and consumed on first successful use.
package totp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/jeranaias/credkeep/internal/crypto"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// BackupCodeCount is the number of backup codes issued per enrollment.
	BackupCodeCount = 10

	// BackupCodeLength is the length of each code in characters.
	BackupCodeLength = 8

	// backupAlphabet is the 32-symbol code alphabet. No 0/O, no 1/I/l.
	backupAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// =============================================================================
// GENERATION AND HASHING
// =============================================================================

// GenerateBackupCodes returns a fresh set of plaintext backup codes.
// The caller shows them to the user exactly once and stores only hashes.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// generateBackupCode draws one code from the alphabet.
// The alphabet has exactly 32 symbols, so masking to 5 bits is unbiased.
func generateBackupCode() (string, error) {
	raw, err := crypto.RandomBytes(BackupCodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate backup code: %w", err)
	}

	buf := make([]byte, BackupCodeLength)
	for i, b := range raw {
		buf[i] = backupAlphabet[b&31]
	}
	return string(buf), nil
}

// HashBackupCode returns the hex SHA-256 digest of a backup code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// ValidateBackupCode reports whether code matches the stored hash.
// Constant time over the digests.
func ValidateBackupCode(code, hash string) bool {
	computed := sha256.Sum256([]byte(code))
	stored, err := hex.DecodeString(hash)
	if err != nil || len(stored) != sha256.Size {
		return false
	}
	return subtle.ConstantTimeCompare(computed[:], stored) == 1
}

// =============================================================================
// BACKUP CODE SET
// =============================================================================

// BackupCodeSet is the at-rest form of a user's backup codes: the hashes
// plus the indices already consumed. It lives on the account record.
type BackupCodeSet struct {
	Hashes   []string `json:"hashes"`
	Consumed []int    `json:"consumed,omitempty"`
}

// NewBackupCodeSet hashes a freshly generated code list.
func NewBackupCodeSet(codes []string) BackupCodeSet {
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = HashBackupCode(c)
	}
	return BackupCodeSet{Hashes: hashes}
}

// Consume finds an unconsumed code matching the given plaintext and marks
// it used. Returns the matched index and true, or -1 and false. Every
// stored hash is compared regardless of earlier matches so the comparison
// count does not depend on which code was supplied.
func (s *BackupCodeSet) Consume(code string) (int, bool) {
	matched := -1
	for i, h := range s.Hashes {
		if ValidateBackupCode(code, h) && !s.isConsumed(i) && matched == -1 {
			matched = i
		}
	}
	if matched == -1 {
		return -1, false
	}
	s.Consumed = append(s.Consumed, matched)
	return matched, true
}

// Remaining returns the number of unconsumed codes.
func (s *BackupCodeSet) Remaining() int {
	return len(s.Hashes) - len(s.Consumed)
}

// Exhausted reports whether every code has been consumed.
func (s *BackupCodeSet) Exhausted() bool {
	return len(s.Hashes) > 0 && s.Remaining() <= 0
}

// isConsumed reports whether index i has already been used.
func (s *BackupCodeSet) isConsumed(i int) bool {
	for _, c := range s.Consumed {
		if c == i {
			return true
		}
	}
	return false
}
