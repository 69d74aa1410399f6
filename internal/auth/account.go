// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/credkeep/internal/store"
	"github.com/jeranaias/credkeep/internal/totp"
)

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is the stored identity record. The password is only ever held
// as an encoded Argon2id hash; the TOTP secret is present exactly when
// two-factor is enabled.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`

	PasswordHash string `json:"passwordHash"`
	VaultSalt    []byte `json:"vaultSalt"`

	TOTPSecret        string             `json:"totpSecret,omitempty"`
	PendingTOTPSecret string             `json:"pendingTotpSecret,omitempty"`
	BackupCodes       totp.BackupCodeSet `json:"backupCodes,omitempty"`

	FailedLoginAttempts     int        `json:"failedLoginAttempts"`
	FailedTwoFactorAttempts int        `json:"failedTwoFactorAttempts"`
	LastFailure             time.Time  `json:"lastFailure,omitempty"`
	LockedUntil             *time.Time `json:"lockedUntil,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin,omitempty"`
}

// TwoFactorEnabled reports whether an active TOTP secret is set.
func (a *Account) TwoFactorEnabled() bool {
	return a.TOTPSecret != ""
}

// NormalizeUsername is the canonical form: trimmed and lowercased.
// Uniqueness and lookup both operate on this form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// loadAccounts reads the account map keyed by ID. A missing key is an
// empty map. Caller must hold e.mu.
func (e *Engine) loadAccounts() (map[string]Account, error) {
	data, err := e.st.Get(store.KeyAccounts)
	if err == store.ErrKeyNotFound {
		return make(map[string]Account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	accounts := make(map[string]Account)
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

func (e *Engine) saveAccounts(accounts map[string]Account) error {
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	if err := e.st.Set(store.KeyAccounts, data); err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}
	return nil
}

// findByUsername scans for the normalized username.
func findByUsername(accounts map[string]Account, username string) (Account, bool) {
	for _, a := range accounts {
		if a.Username == username {
			return a, true
		}
	}
	return Account{}, false
}
