// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/totp"
)

// =============================================================================
// TWO-FACTOR ENROLLMENT
// =============================================================================

// Issuer is the label shown in authenticator apps.
const Issuer = "credkeep"

// TwoFactorEnrollment is handed to the caller once during enrollment.
// The secret and QR image must be shown to the user and then discarded;
// they are never retrievable again.
type TwoFactorEnrollment struct {
	Secret string
	URI    string
	QRPNG  []byte
}

// EnableTwoFactor starts enrollment: a fresh secret is generated and
// parked as pending. 2FA is not active until ConfirmTwoFactor proves
// the authenticator has the secret.
func (e *Engine) EnableTwoFactor(token string) (*TwoFactorEnrollment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, accounts, account, err := e.requireSession(token)
	if err != nil {
		return nil, err
	}
	if account.TwoFactorEnabled() {
		return nil, &ValidationError{Message: "two-factor authentication is already enabled"}
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, newCryptoError("secret generation", err)
	}

	uri := totp.BuildProvisioningURI(secret, account.Username, Issuer)
	png, err := totp.RenderQRCode(uri)
	if err != nil {
		return nil, newCryptoError("qr rendering", err)
	}

	account.PendingTOTPSecret = secret
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return nil, err
	}

	return &TwoFactorEnrollment{Secret: secret, URI: uri, QRPNG: png}, nil
}

// ConfirmTwoFactor completes enrollment. The code must validate against
// the pending secret; on success 2FA becomes active and the plaintext
// backup codes are returned, once.
func (e *Engine) ConfirmTwoFactor(token, code string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, accounts, account, err := e.requireSession(token)
	if err != nil {
		return nil, err
	}
	if account.PendingTOTPSecret == "" {
		return nil, &ValidationError{Message: "no two-factor enrollment in progress"}
	}

	if !totp.ValidateToken(code, account.PendingTOTPSecret, e.clock().UTC()) {
		return nil, newAuthError(CodeTwoFactorInvalid, "invalid two-factor code")
	}

	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, newCryptoError("backup code generation", err)
	}

	account.TOTPSecret = account.PendingTOTPSecret
	account.PendingTOTPSecret = ""
	account.BackupCodes = totp.NewBackupCodeSet(codes)
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return nil, err
	}

	e.record(audit.EventTwoFactorEnabled, account.ID, "")
	return codes, nil
}

// DisableTwoFactor turns 2FA off. The password is re-verified so a
// hijacked session cannot silently weaken the account.
func (e *Engine) DisableTwoFactor(token, password string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, accounts, account, err := e.requireSession(token)
	if err != nil {
		return err
	}
	if !account.TwoFactorEnabled() && account.PendingTOTPSecret == "" {
		return &ValidationError{Message: "two-factor authentication is not enabled"}
	}
	if !crypto.VerifyPassword(password, account.PasswordHash) {
		return errInvalidCredentials()
	}

	account.TOTPSecret = ""
	account.PendingTOTPSecret = ""
	account.BackupCodes = totp.BackupCodeSet{}
	account.FailedTwoFactorAttempts = 0
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return err
	}

	e.record(audit.EventTwoFactorDisabled, account.ID, "")
	return nil
}

// RegenerateBackupCodes replaces the whole backup code set. Consumed
// and unconsumed codes alike stop working. Returns the new plaintext
// codes, once.
func (e *Engine) RegenerateBackupCodes(token, password string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, accounts, account, err := e.requireSession(token)
	if err != nil {
		return nil, err
	}
	if !account.TwoFactorEnabled() {
		return nil, &ValidationError{Message: "two-factor authentication is not enabled"}
	}
	if !crypto.VerifyPassword(password, account.PasswordHash) {
		return nil, errInvalidCredentials()
	}

	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, newCryptoError("backup code generation", err)
	}

	account.BackupCodes = totp.NewBackupCodeSet(codes)
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return nil, err
	}

	e.record(audit.EventBackupCodesRegenerated, account.ID, "")
	return codes, nil
}

// RemainingBackupCodes reports how many backup codes are still unused.
func (e *Engine) RemainingBackupCodes(token string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, account, err := e.requireSession(token)
	if err != nil {
		return 0, err
	}
	return account.BackupCodes.Remaining(), nil
}
