// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/session"
	"github.com/jeranaias/credkeep/internal/store"
	"github.com/jeranaias/credkeep/internal/totp"
)

const testPassword = "Str0ng!Passw0rd123"

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *audit.Logger, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	logger := audit.NewLogger(st, audit.WithClock(clock.Now))
	sessions := session.NewManager(st, logger, session.WithClock(clock.Now))

	eng := NewEngine(st, sessions, logger,
		WithClock(clock.Now),
		WithKeyIterations(crypto.PBKDF2MinIterations),
		WithLoginRate(rate.Inf, 1),
	)
	return eng, logger, clock
}

// registerAndLogin is the common fixture: one account, one session.
func registerAndLogin(t *testing.T, eng *Engine) *session.Session {
	t.Helper()

	if _, err := eng.Register("alice", testPassword); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	s, err := eng.Login("alice", testPassword, "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return s
}

// enableTwoFactor completes the full enrollment and returns the secret
// and plaintext backup codes.
func enableTwoFactor(t *testing.T, eng *Engine, token string, clock *fakeClock) (string, []string) {
	t.Helper()

	enrollment, err := eng.EnableTwoFactor(token)
	if err != nil {
		t.Fatalf("EnableTwoFactor failed: %v", err)
	}

	code, err := totp.GenerateToken(enrollment.Secret, clock.Now())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	codes, err := eng.ConfirmTwoFactor(token, code)
	if err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
	return enrollment.Secret, codes
}

// =============================================================================
// REGISTRATION TESTS
// =============================================================================

// TestRegister tests account creation and username normalization.
func TestRegister(t *testing.T) {
	eng, logger, _ := newTestEngine(t)

	account, err := eng.Register("  Alice  ", testPassword)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if account.Username != "alice" {
		t.Errorf("Username not normalized: %q", account.Username)
	}
	if account.PasswordHash == testPassword || account.PasswordHash == "" {
		t.Error("Password not hashed")
	}
	if len(account.VaultSalt) != crypto.SaltSize {
		t.Errorf("Vault salt has %d bytes, want %d", len(account.VaultSalt), crypto.SaltSize)
	}
	if account.FailedLoginAttempts != 0 || account.LockedUntil != nil {
		t.Error("New account has non-zero lockout state")
	}

	events, err := logger.Events(audit.Filter{Kind: audit.EventRegistration})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Got %d registration events, want 1", len(events))
	}
}

// TestRegisterDuplicateUsername tests case-insensitive uniqueness.
func TestRegisterDuplicateUsername(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if _, err := eng.Register("alice", testPassword); err != nil {
		t.Fatalf("First Register failed: %v", err)
	}

	var verr *ValidationError
	if _, err := eng.Register("ALICE", testPassword); !errors.As(err, &verr) {
		t.Errorf("Duplicate username: got %v, want ValidationError", err)
	}
}

// TestRegisterWeakPassword tests the strength policy at the gate.
func TestRegisterWeakPassword(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	var verr *ValidationError
	if _, err := eng.Register("alice", "short"); !errors.As(err, &verr) {
		t.Errorf("Weak password: got %v, want ValidationError", err)
	}
	if _, err := eng.Register("", testPassword); !errors.As(err, &verr) {
		t.Errorf("Empty username: got %v, want ValidationError", err)
	}
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

// TestLogin tests the success path.
func TestLogin(t *testing.T) {
	eng, logger, _ := newTestEngine(t)

	s := registerAndLogin(t, eng)
	if !eng.IsAuthenticated(s.Token) {
		t.Error("Fresh session not authenticated")
	}

	key, err := eng.VaultKey(s.Token)
	if err != nil {
		t.Fatalf("VaultKey failed: %v", err)
	}
	if len(key) != crypto.KeySize {
		t.Errorf("Vault key has %d bytes, want %d", len(key), crypto.KeySize)
	}

	events, err := logger.Events(audit.Filter{Kind: audit.EventLoginSuccess})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Got %d login_success events, want 1", len(events))
	}
}

// TestLoginUnknownUsername tests that username probing is impossible.
func TestLoginUnknownUsername(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	registerAndLogin(t, eng)

	_, errUnknown := eng.Login("nobody", testPassword, "")
	_, errWrongPw := eng.Login("alice", "Wr0ng!Passw0rd123", "")

	if !errors.Is(errUnknown, &AuthError{Code: CodeInvalidCredentials}) {
		t.Errorf("Unknown username: got %v, want INVALID_CREDENTIALS", errUnknown)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("Unknown username and wrong password produce different messages: %q vs %q",
			errUnknown.Error(), errWrongPw.Error())
	}
}

// TestLockout tests the 5-failure ceiling and the 15-minute window.
func TestLockout(t *testing.T) {
	eng, logger, clock := newTestEngine(t)
	registerAndLogin(t, eng)

	// Four wrong passwords: still just invalid credentials.
	for i := 0; i < MaxPasswordFailures-1; i++ {
		_, err := eng.Login("alice", "Wr0ng!Passw0rd123", "")
		if !errors.Is(err, &AuthError{Code: CodeInvalidCredentials}) {
			t.Fatalf("Failure %d: got %v, want INVALID_CREDENTIALS", i+1, err)
		}
	}

	// The fifth crosses into lockout.
	_, err := eng.Login("alice", "Wr0ng!Passw0rd123", "")
	if !errors.Is(err, &AuthError{Code: CodeAccountLocked}) {
		t.Fatalf("Fifth failure: got %v, want ACCOUNT_LOCKED", err)
	}

	// During the window even the correct password is rejected.
	_, err = eng.Login("alice", testPassword, "")
	if !errors.Is(err, &AuthError{Code: CodeAccountLocked}) {
		t.Errorf("Correct password during lockout: got %v, want ACCOUNT_LOCKED", err)
	}

	// After the window a correct password succeeds and resets state.
	clock.Advance(LockoutDuration + time.Second)
	s, err := eng.Login("alice", testPassword, "")
	if err != nil {
		t.Fatalf("Login after lockout expiry failed: %v", err)
	}

	account, err := eng.Account(s.Token)
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}
	if account.FailedLoginAttempts != 0 || account.LockedUntil != nil {
		t.Error("Counters not reset after successful login")
	}

	locked, err := logger.Events(audit.Filter{Kind: audit.EventAccountLocked})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(locked) != 1 {
		t.Errorf("Got %d account_locked events, want 1", len(locked))
	}
}

// TestLoginRateLimited tests the per-username throttle.
func TestLoginRateLimited(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	logger := audit.NewLogger(st)
	sessions := session.NewManager(st, logger, session.WithClock(clock.Now))
	eng := NewEngine(st, sessions, logger,
		WithClock(clock.Now),
		WithLoginRate(rate.Every(time.Hour), 2),
	)

	eng.Login("alice", "x", "")
	eng.Login("alice", "x", "")
	if _, err := eng.Login("alice", "x", ""); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Third rapid attempt: got %v, want ErrRateLimited", err)
	}

	// A different username has its own budget.
	if _, err := eng.Login("bob", "x", ""); errors.Is(err, ErrRateLimited) {
		t.Error("Throttle leaked across usernames")
	}
}

// =============================================================================
// TWO-FACTOR TESTS
// =============================================================================

// TestTwoFactorEnrollment tests the pending-then-confirm lifecycle.
func TestTwoFactorEnrollment(t *testing.T) {
	eng, logger, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)

	enrollment, err := eng.EnableTwoFactor(s.Token)
	if err != nil {
		t.Fatalf("EnableTwoFactor failed: %v", err)
	}
	if enrollment.Secret == "" || enrollment.URI == "" || len(enrollment.QRPNG) == 0 {
		t.Fatal("Enrollment is missing secret, URI, or QR image")
	}

	// Pending enrollment does not require a code at login yet.
	if _, err := eng.Login("alice", testPassword, ""); err != nil {
		t.Errorf("Login during pending enrollment failed: %v", err)
	}

	// A wrong confirmation code does not activate.
	if _, err := eng.ConfirmTwoFactor(s.Token, "000000"); !errors.Is(err, &AuthError{Code: CodeTwoFactorInvalid}) {
		t.Errorf("Wrong confirmation code: got %v, want TWO_FACTOR_INVALID", err)
	}

	code, err := totp.GenerateToken(enrollment.Secret, clock.Now())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	codes, err := eng.ConfirmTwoFactor(s.Token, code)
	if err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
	if len(codes) != totp.BackupCodeCount {
		t.Errorf("Got %d backup codes, want %d", len(codes), totp.BackupCodeCount)
	}

	events, err := logger.Events(audit.Filter{Kind: audit.EventTwoFactorEnabled})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Got %d 2fa_enabled events, want 1", len(events))
	}
}

// TestLoginWithTwoFactor tests the code-required and code-validation
// paths.
func TestLoginWithTwoFactor(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)
	secret, _ := enableTwoFactor(t, eng, s.Token, clock)

	// Password alone is no longer enough.
	_, err := eng.Login("alice", testPassword, "")
	if !errors.Is(err, &AuthError{Code: CodeTwoFactorRequired}) {
		t.Fatalf("Login without code: got %v, want TWO_FACTOR_REQUIRED", err)
	}

	code, err := totp.GenerateToken(secret, clock.Now())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := eng.Login("alice", testPassword, code); err != nil {
		t.Fatalf("Login with TOTP failed: %v", err)
	}
}

// TestLoginWithBackupCode tests consume-once backup code login.
func TestLoginWithBackupCode(t *testing.T) {
	eng, logger, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)
	_, codes := enableTwoFactor(t, eng, s.Token, clock)

	if _, err := eng.Login("alice", testPassword, codes[0]); err != nil {
		t.Fatalf("Login with backup code failed: %v", err)
	}

	// The same code is rejected the second time.
	_, err := eng.Login("alice", testPassword, codes[0])
	if !errors.Is(err, &AuthError{Code: CodeTwoFactorInvalid}) {
		t.Errorf("Reused backup code: got %v, want TWO_FACTOR_INVALID", err)
	}

	used, err := logger.Events(audit.Filter{Kind: audit.EventBackupCodeUsed})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(used) != 1 {
		t.Errorf("Got %d backup_code_used events, want 1", len(used))
	}
}

// TestTwoFactorLockout tests the separate 3-failure ceiling.
func TestTwoFactorLockout(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)
	enableTwoFactor(t, eng, s.Token, clock)

	for i := 0; i < MaxTwoFactorFailures-1; i++ {
		_, err := eng.Login("alice", testPassword, "000000")
		if !errors.Is(err, &AuthError{Code: CodeTwoFactorInvalid}) {
			t.Fatalf("2FA failure %d: got %v, want TWO_FACTOR_INVALID", i+1, err)
		}
	}

	_, err := eng.Login("alice", testPassword, "000000")
	if !errors.Is(err, &AuthError{Code: CodeAccountLocked}) {
		t.Errorf("Third 2FA failure: got %v, want ACCOUNT_LOCKED", err)
	}
}

// TestDisableTwoFactor tests teardown with password re-verification.
func TestDisableTwoFactor(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)
	enableTwoFactor(t, eng, s.Token, clock)

	if err := eng.DisableTwoFactor(s.Token, "Wr0ng!Passw0rd123"); !errors.Is(err, &AuthError{Code: CodeInvalidCredentials}) {
		t.Errorf("Disable with wrong password: got %v, want INVALID_CREDENTIALS", err)
	}

	if err := eng.DisableTwoFactor(s.Token, testPassword); err != nil {
		t.Fatalf("DisableTwoFactor failed: %v", err)
	}

	// Password alone suffices again.
	if _, err := eng.Login("alice", testPassword, ""); err != nil {
		t.Errorf("Login after disable failed: %v", err)
	}
}

// TestRegenerateBackupCodes tests that old codes stop working.
func TestRegenerateBackupCodes(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)
	_, oldCodes := enableTwoFactor(t, eng, s.Token, clock)

	newCodes, err := eng.RegenerateBackupCodes(s.Token, testPassword)
	if err != nil {
		t.Fatalf("RegenerateBackupCodes failed: %v", err)
	}
	if len(newCodes) != totp.BackupCodeCount {
		t.Errorf("Got %d new codes, want %d", len(newCodes), totp.BackupCodeCount)
	}

	_, err = eng.Login("alice", testPassword, oldCodes[0])
	if !errors.Is(err, &AuthError{Code: CodeTwoFactorInvalid}) {
		t.Errorf("Old backup code after regeneration: got %v, want TWO_FACTOR_INVALID", err)
	}
	if _, err := eng.Login("alice", testPassword, newCodes[0]); err != nil {
		t.Errorf("New backup code failed: %v", err)
	}

	remaining, err := eng.RemainingBackupCodes(s.Token)
	if err != nil {
		t.Fatalf("RemainingBackupCodes failed: %v", err)
	}
	if remaining != totp.BackupCodeCount-1 {
		t.Errorf("Remaining = %d, want %d", remaining, totp.BackupCodeCount-1)
	}
}

// =============================================================================
// SESSION-SCOPED TESTS
// =============================================================================

// TestLogout tests idempotent logout and key disposal.
func TestLogout(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	s := registerAndLogin(t, eng)

	if err := eng.Logout(s.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if eng.IsAuthenticated(s.Token) {
		t.Error("Session authenticated after logout")
	}
	if _, err := eng.VaultKey(s.Token); err == nil {
		t.Error("Vault key survived logout")
	}

	// Logout again succeeds silently.
	if err := eng.Logout(s.Token); err != nil {
		t.Errorf("Second logout failed: %v", err)
	}
}

// TestSessionExpiryClearsKey tests that an expired session loses its
// vault key and reports SessionExpiredError.
func TestSessionExpiryClearsKey(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	s := registerAndLogin(t, eng)

	clock.Advance(session.IdleTimeout)

	var serr *SessionExpiredError
	if _, err := eng.VaultKey(s.Token); !errors.As(err, &serr) {
		t.Errorf("Expired session VaultKey: got %v, want SessionExpiredError", err)
	}
	if eng.IsAuthenticated(s.Token) {
		t.Error("Expired session still authenticated")
	}
}

// TestUnlock tests re-deriving the vault key for a live session in a
// process that never saw the login.
func TestUnlock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	logger := audit.NewLogger(st, audit.WithClock(clock.Now))
	sessions := session.NewManager(st, logger, session.WithClock(clock.Now))

	opts := []Option{
		WithClock(clock.Now),
		WithKeyIterations(crypto.PBKDF2MinIterations),
		WithLoginRate(rate.Inf, 1),
	}
	eng := NewEngine(st, sessions, logger, opts...)
	s := registerAndLogin(t, eng)

	if !eng.HasVaultKey(s.Token) {
		t.Fatal("No vault key after login")
	}

	// A second engine over the same store and sessions sees the live
	// session but holds no key for it.
	eng2 := NewEngine(st, sessions, logger, opts...)
	if eng2.HasVaultKey(s.Token) {
		t.Fatal("Fresh engine holds a vault key")
	}
	if _, err := eng2.VaultKey(s.Token); err == nil {
		t.Error("VaultKey succeeded without an unlock")
	}

	var aerr *AuthError
	if err := eng2.Unlock(s.Token, "wrong-password"); !errors.As(err, &aerr) || aerr.Code != CodeInvalidCredentials {
		t.Errorf("Unlock with wrong password: got %v, want invalid credentials", err)
	}
	if eng2.HasVaultKey(s.Token) {
		t.Error("Failed unlock left a vault key behind")
	}

	if err := eng2.Unlock(s.Token, testPassword); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if !eng2.HasVaultKey(s.Token) {
		t.Error("No vault key after unlock")
	}
	key, err := eng2.VaultKey(s.Token)
	if err != nil {
		t.Fatalf("VaultKey after unlock failed: %v", err)
	}
	if len(key) != crypto.KeySize {
		t.Errorf("Vault key length = %d, want %d", len(key), crypto.KeySize)
	}

	// Unlocking an already-unlocked session is a no-op even with a bad
	// password argument left over from a retry loop.
	if err := eng2.Unlock(s.Token, testPassword); err != nil {
		t.Errorf("Repeat unlock failed: %v", err)
	}

	// A dead session cannot be unlocked.
	if err := eng.Logout(s.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	var serr *SessionExpiredError
	if err := eng2.Unlock(s.Token, testPassword); !errors.As(err, &serr) {
		t.Errorf("Unlock on dead session: got %v, want SessionExpiredError", err)
	}
}

// =============================================================================
// PASSWORD CHANGE TESTS
// =============================================================================

// recordingRekeyer captures the Rekey call.
type recordingRekeyer struct {
	accountID string
	oldKey    []byte
	newKey    []byte
	calls     int
	fail      error
}

func (r *recordingRekeyer) Rekey(accountID string, oldKey, newKey, newSalt []byte) error {
	r.accountID = accountID
	r.oldKey = append([]byte(nil), oldKey...)
	r.newKey = append([]byte(nil), newKey...)
	r.calls++
	return r.fail
}

// TestChangePassword tests the full rotation: hash, salt, vault key,
// and other-session invalidation.
func TestChangePassword(t *testing.T) {
	eng, logger, _ := newTestEngine(t)
	s := registerAndLogin(t, eng)
	other, err := eng.Login("alice", testPassword, "")
	if err != nil {
		t.Fatalf("Second login failed: %v", err)
	}

	rekeyer := &recordingRekeyer{}
	eng.SetRekeyer(rekeyer)

	oldKey, _ := eng.VaultKey(s.Token)
	oldKeyCopy := append([]byte(nil), oldKey...)

	const newPassword = "N3w!Passw0rd456xy"
	if err := eng.ChangePassword(s.Token, "Wr0ng!Passw0rd123", newPassword); !errors.Is(err, &AuthError{Code: CodeInvalidCredentials}) {
		t.Fatalf("Change with wrong old password: got %v, want INVALID_CREDENTIALS", err)
	}
	if err := eng.ChangePassword(s.Token, testPassword, "weak"); err == nil {
		t.Fatal("Weak new password accepted")
	}

	if err := eng.ChangePassword(s.Token, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if rekeyer.calls != 1 {
		t.Fatalf("Rekeyer called %d times, want 1", rekeyer.calls)
	}
	if string(rekeyer.oldKey) != string(oldKeyCopy) {
		t.Error("Rekeyer did not receive the old vault key")
	}
	if string(rekeyer.newKey) == string(oldKeyCopy) {
		t.Error("New vault key equals old vault key")
	}

	// The changing session survives with the new key; the other dies.
	newKey, err := eng.VaultKey(s.Token)
	if err != nil {
		t.Fatalf("VaultKey after change failed: %v", err)
	}
	if string(newKey) != string(rekeyer.newKey) {
		t.Error("Session key does not match rekeyed key")
	}
	if eng.IsAuthenticated(other.Token) {
		t.Error("Other session survived password change")
	}

	// Old password no longer works, new one does.
	if _, err := eng.Login("alice", testPassword, ""); err == nil {
		t.Error("Old password still accepted")
	}
	if _, err := eng.Login("alice", newPassword, ""); err != nil {
		t.Errorf("New password rejected: %v", err)
	}

	events, err := logger.Events(audit.Filter{Kind: audit.EventPasswordChanged})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Got %d password_changed events, want 1", len(events))
	}
}

// TestChangePasswordRekeyFailure tests that a failed vault rekey leaves
// the password unchanged.
func TestChangePasswordRekeyFailure(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	s := registerAndLogin(t, eng)

	eng.SetRekeyer(&recordingRekeyer{fail: errors.New("disk full")})

	var cerr *CryptoError
	if err := eng.ChangePassword(s.Token, testPassword, "N3w!Passw0rd456xy"); !errors.As(err, &cerr) {
		t.Fatalf("Got %v, want CryptoError", err)
	}

	// Old password still logs in.
	if _, err := eng.Login("alice", testPassword, ""); err != nil {
		t.Errorf("Old password rejected after failed change: %v", err)
	}
}

// =============================================================================
// ACCOUNT DELETION TESTS
// =============================================================================

// TestDeleteAccount tests the cascade and the audit ordering.
func TestDeleteAccount(t *testing.T) {
	eng, logger, _ := newTestEngine(t)
	s := registerAndLogin(t, eng)

	if err := eng.DeleteAccount(s.Token, "Wr0ng!Passw0rd123"); !errors.Is(err, &AuthError{Code: CodeInvalidCredentials}) {
		t.Fatalf("Delete with wrong password: got %v, want INVALID_CREDENTIALS", err)
	}
	// Failed deletion left everything intact.
	if !eng.IsAuthenticated(s.Token) {
		t.Fatal("Session lost after failed deletion")
	}

	if err := eng.DeleteAccount(s.Token, testPassword); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}

	if eng.IsAuthenticated(s.Token) {
		t.Error("Session survived account deletion")
	}
	if _, err := eng.Login("alice", testPassword, ""); err == nil {
		t.Error("Deleted account can still log in")
	}

	// The account's audit trail is cleared with it.
	events, err := logger.Events(audit.Filter{})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	for _, e := range events {
		if e.AccountID != "" {
			t.Errorf("Account-scoped event survived deletion: %v", e)
		}
	}
}
