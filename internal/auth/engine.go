// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/session"
	"github.com/jeranaias/credkeep/internal/store"
	"github.com/jeranaias/credkeep/internal/totp"
)

// =============================================================================
// ENGINE
// =============================================================================

// Rekeyer re-encrypts an account's vault under a new key. Implemented by
// the vault store; wired in at startup so a password change can carry
// the vault along without auth importing vault. newSalt is the salt the
// new key was derived with, for the vault's stored record.
type Rekeyer interface {
	Rekey(accountID string, oldKey, newKey, newSalt []byte) error
}

// Engine orchestrates all account operations. One mutex serializes
// account mutations; the store is the single source of truth.
type Engine struct {
	st       store.Store
	sessions *session.Manager
	log      *audit.Logger
	rekeyer  Rekeyer

	clock      func() time.Time
	params     crypto.Argon2Params
	iterations int
	device     string
	origin     string

	mu sync.Mutex

	// vaultKeys maps session token to the derived vault key. Memory
	// only; zeroed when the session ends.
	vaultKeys map[string][]byte

	// limiters throttles login attempts per normalized username.
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
	limitRate  rate.Limit
	limitBurst int
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock replaces the time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithArgon2Params overrides the password hashing cost. Values below
// the security floor are clamped.
func WithArgon2Params(params crypto.Argon2Params) Option {
	return func(e *Engine) {
		e.params = params.Clamp()
	}
}

// WithKeyIterations overrides the PBKDF2 iteration count for vault key
// derivation. Values below the floor are clamped.
func WithKeyIterations(iterations int) Option {
	return func(e *Engine) {
		if iterations < crypto.PBKDF2MinIterations {
			iterations = crypto.PBKDF2MinIterations
		}
		e.iterations = iterations
	}
}

// WithOrigin sets the device and origin tags stamped on new sessions.
func WithOrigin(device, origin string) Option {
	return func(e *Engine) {
		e.device = device
		e.origin = origin
	}
}

// WithLoginRate overrides the per-username login throttle.
func WithLoginRate(r rate.Limit, burst int) Option {
	return func(e *Engine) {
		e.limitRate = r
		e.limitBurst = burst
	}
}

// NewEngine creates the engine over the given store, session manager,
// and audit logger.
func NewEngine(st store.Store, sessions *session.Manager, log *audit.Logger, opts ...Option) *Engine {
	e := &Engine{
		st:         st,
		sessions:   sessions,
		log:        log,
		clock:      time.Now,
		params:     crypto.DefaultArgon2Params(),
		iterations: crypto.PBKDF2Iterations,
		device:     "cli",
		origin:     "local",
		vaultKeys:  make(map[string][]byte),
		limiters:   make(map[string]*rate.Limiter),
		limitRate:  rate.Every(time.Second),
		limitBurst: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetRekeyer wires the vault re-encryption hook. Must be called before
// ChangePassword is used.
func (e *Engine) SetRekeyer(r Rekeyer) {
	e.rekeyer = r
}

// record logs an audit event; audit failures never fail the triggering
// operation.
func (e *Engine) record(kind audit.EventKind, accountID, detail string) {
	if e.log == nil {
		return
	}
	_ = e.log.Record(kind, accountID, detail)
}

// =============================================================================
// REGISTRATION
// =============================================================================

// Register creates a new account. The username is normalized (trimmed,
// lowercased) and must be unique; the password must pass the strength
// policy.
func (e *Engine) Register(username, password string) (*Account, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "must not be empty"}
	}

	if result := ValidatePasswordStrength(password); !result.Valid {
		return nil, &ValidationError{
			Field:   "password",
			Message: strings.Join(result.Reasons, "; "),
		}
	}

	hash, err := crypto.HashPassword(password, e.params)
	if err != nil {
		return nil, newCryptoError("password hashing", err)
	}
	salt, err := crypto.RandomSalt()
	if err != nil {
		return nil, newCryptoError("salt generation", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.loadAccounts()
	if err != nil {
		return nil, err
	}
	if _, taken := findByUsername(accounts, username); taken {
		return nil, &ValidationError{Field: "username", Message: "already taken"}
	}

	account := Account{
		ID:           crypto.NewID(),
		Username:     username,
		PasswordHash: hash,
		VaultSalt:    salt,
		CreatedAt:    e.clock().UTC(),
	}
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return nil, err
	}

	e.record(audit.EventRegistration, account.ID, "account created")
	return &account, nil
}

// =============================================================================
// LOGIN
// =============================================================================

// Login authenticates the user and starts a session. totpCode is empty
// unless the caller already has a second factor to present; for a
// 2FA-enabled account an empty code fails with TWO_FACTOR_REQUIRED
// after the password has been verified.
func (e *Engine) Login(username, password, totpCode string) (*session.Session, error) {
	username = NormalizeUsername(username)

	if !e.allowAttempt(username) {
		return nil, ErrRateLimited
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.loadAccounts()
	if err != nil {
		return nil, err
	}

	account, found := findByUsername(accounts, username)
	if !found {
		// Same failure as a wrong password so usernames cannot be
		// probed.
		e.record(audit.EventLoginFailure, "", fmt.Sprintf("unknown username %q", username))
		return nil, errInvalidCredentials()
	}

	now := e.clock().UTC()
	if account.IsLocked(now) {
		remaining := account.LockRemaining(now).Round(time.Second)
		e.record(audit.EventLoginFailure, account.ID, "attempt during lockout")
		return nil, newAuthError(CodeAccountLocked,
			"account locked, try again in %s", remaining)
	}

	if !crypto.VerifyPassword(password, account.PasswordHash) {
		locked := account.recordPasswordFailure(now)
		accounts[account.ID] = account
		if err := e.saveAccounts(accounts); err != nil {
			return nil, err
		}

		e.record(audit.EventLoginFailure, account.ID, "wrong password")
		if locked {
			e.record(audit.EventAccountLocked, account.ID, "password failure ceiling reached")
			return nil, newAuthError(CodeAccountLocked,
				"account locked, try again in %s", LockoutDuration)
		}
		return nil, errInvalidCredentials()
	}

	if account.TwoFactorEnabled() {
		if totpCode == "" {
			return nil, newAuthError(CodeTwoFactorRequired, "two-factor code required")
		}
		ok, usedBackup := e.checkSecondFactor(&account, totpCode, now)
		if !ok {
			locked := account.recordTwoFactorFailure(now)
			accounts[account.ID] = account
			if err := e.saveAccounts(accounts); err != nil {
				return nil, err
			}

			e.record(audit.EventTwoFactorFailed, account.ID, "invalid code")
			if locked {
				e.record(audit.EventAccountLocked, account.ID, "two-factor failure ceiling reached")
				return nil, newAuthError(CodeAccountLocked,
					"account locked, try again in %s", LockoutDuration)
			}
			return nil, newAuthError(CodeTwoFactorInvalid, "invalid two-factor code")
		}
		if usedBackup {
			e.record(audit.EventBackupCodeUsed, account.ID,
				fmt.Sprintf("%d backup codes remaining", account.BackupCodes.Remaining()))
		}
	}

	account.resetFailures()
	account.LastLogin = now
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return nil, err
	}

	s, err := e.sessions.Create(account.ID, e.device, e.origin)
	if err != nil {
		return nil, err
	}

	e.vaultKeys[s.Token] = crypto.DeriveKeyN(password, account.VaultSalt, e.iterations)

	e.record(audit.EventLoginSuccess, account.ID, "")
	return s, nil
}

// checkSecondFactor tries the code as TOTP first, then as an unused
// backup code. Mutates the account's consumed set on a backup match.
func (e *Engine) checkSecondFactor(account *Account, code string, now time.Time) (ok, usedBackup bool) {
	if totp.ValidateToken(code, account.TOTPSecret, now) {
		return true, false
	}
	if _, consumed := account.BackupCodes.Consume(code); consumed {
		return true, true
	}
	return false, false
}

// allowAttempt applies the per-username throttle.
func (e *Engine) allowAttempt(username string) bool {
	e.limitersMu.Lock()
	defer e.limitersMu.Unlock()

	lim, ok := e.limiters[username]
	if !ok {
		lim = rate.NewLimiter(e.limitRate, e.limitBurst)
		e.limiters[username] = lim
	}
	return lim.Allow()
}

// =============================================================================
// SESSION-SCOPED OPERATIONS
// =============================================================================

// requireSession validates the token and loads the owning account.
// Caller must hold e.mu.
func (e *Engine) requireSession(token string) (*session.Session, map[string]Account, Account, error) {
	s, err := e.sessions.Validate(token)
	if err != nil {
		e.dropKeyLocked(token)
		if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, session.ErrSessionNotFound) {
			return nil, nil, Account{}, &SessionExpiredError{}
		}
		return nil, nil, Account{}, err
	}

	accounts, err := e.loadAccounts()
	if err != nil {
		return nil, nil, Account{}, err
	}
	account, found := accounts[s.AccountID]
	if !found {
		return nil, nil, Account{}, &SessionExpiredError{}
	}
	return s, accounts, account, nil
}

// Logout ends the session. Idempotent: an unknown or already-ended
// token succeeds silently.
func (e *Engine) Logout(token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.sessions.Validate(token)
	e.dropKeyLocked(token)
	if err != nil {
		// Already gone; logout still succeeds.
		return e.sessions.Invalidate(token)
	}

	if err := e.sessions.Invalidate(token); err != nil {
		return err
	}
	e.record(audit.EventLogout, s.AccountID, "")
	return nil
}

// IsAuthenticated reports whether the token names a live session. An
// expired session is cleaned up as a side effect.
func (e *Engine) IsAuthenticated(token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.sessions.Validate(token); err != nil {
		e.dropKeyLocked(token)
		return false
	}
	return true
}

// Touch refreshes the session's idle deadline.
func (e *Engine) Touch(token string) error {
	err := e.sessions.Touch(token)
	if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, session.ErrSessionNotFound) {
		e.mu.Lock()
		e.dropKeyLocked(token)
		e.mu.Unlock()
		return &SessionExpiredError{}
	}
	return err
}

// VaultKey returns the derived vault key for a live session. The
// returned slice is the engine's copy; callers must not zero it.
func (e *Engine) VaultKey(token string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.sessions.Validate(token); err != nil {
		e.dropKeyLocked(token)
		return nil, &SessionExpiredError{}
	}

	key, ok := e.vaultKeys[token]
	if !ok {
		return nil, &SessionExpiredError{}
	}
	return key, nil
}

// Account returns the account behind a live session, for display. The
// password hash is part of the record; callers render selected fields
// only.
func (e *Engine) Account(token string) (*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, account, err := e.requireSession(token)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CheckPassword re-verifies the account password for a live session.
// Used by operations that need explicit consent beyond session
// possession, like export.
func (e *Engine) CheckPassword(token, password string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, account, err := e.requireSession(token)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(password, account.PasswordHash) {
		return errInvalidCredentials()
	}
	return nil
}

// Unlock re-derives the vault key for a live session from the account
// password. A new process resuming a persisted session has the session
// record but not the in-memory key; Unlock restores it after the
// password is proven again. No-op when the key is already present.
func (e *Engine) Unlock(token, password string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _, account, err := e.requireSession(token)
	if err != nil {
		return err
	}
	if _, ok := e.vaultKeys[token]; ok {
		return nil
	}
	if !crypto.VerifyPassword(password, account.PasswordHash) {
		return errInvalidCredentials()
	}

	e.vaultKeys[token] = crypto.DeriveKeyN(password, account.VaultSalt, e.iterations)
	return nil
}

// HasVaultKey reports whether the vault key for token is held in
// memory. False for a session resumed by another process until Unlock.
func (e *Engine) HasVaultKey(token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.vaultKeys[token]
	return ok
}

// dropKeyLocked zeroes and forgets the vault key for token. Caller must
// hold e.mu.
func (e *Engine) dropKeyLocked(token string) {
	if key, ok := e.vaultKeys[token]; ok {
		crypto.ZeroBytes(key)
		delete(e.vaultKeys, token)
	}
}

// =============================================================================
// PASSWORD CHANGE
// =============================================================================

// ChangePassword verifies the old password, re-hashes under the new
// one, re-encrypts the vault under a key derived from the new password
// and a fresh salt, and invalidates every other session of the account.
func (e *Engine) ChangePassword(token, oldPassword, newPassword string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, accounts, account, err := e.requireSession(token)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(oldPassword, account.PasswordHash) {
		return errInvalidCredentials()
	}
	if result := ValidatePasswordStrength(newPassword); !result.Valid {
		return &ValidationError{
			Field:   "password",
			Message: strings.Join(result.Reasons, "; "),
		}
	}

	hash, err := crypto.HashPassword(newPassword, e.params)
	if err != nil {
		return newCryptoError("password hashing", err)
	}
	salt, err := crypto.RandomSalt()
	if err != nil {
		return newCryptoError("salt generation", err)
	}

	// A process that resumed a persisted session may not hold the key
	// yet; the old password just verified, so derive it.
	oldKey := e.vaultKeys[token]
	if oldKey == nil {
		oldKey = crypto.DeriveKeyN(oldPassword, account.VaultSalt, e.iterations)
	}
	newKey := crypto.DeriveKeyN(newPassword, salt, e.iterations)

	if e.rekeyer != nil {
		if err := e.rekeyer.Rekey(account.ID, oldKey, newKey, salt); err != nil {
			crypto.ZeroBytes(newKey)
			return newCryptoError("vault re-encryption", err)
		}
	}

	account.PasswordHash = hash
	account.VaultSalt = salt
	accounts[account.ID] = account
	if err := e.saveAccounts(accounts); err != nil {
		return err
	}

	// The session that made the change keeps working under the new key.
	e.dropKeyLocked(token)
	e.vaultKeys[token] = newKey
	if _, err := e.sessions.InvalidateOthers(account.ID, s.Token); err != nil {
		return err
	}
	for t := range e.vaultKeys {
		if t != token {
			// Keys for invalidated sessions of this account are now
			// stale; drop them all except ours.
			if _, err := e.sessions.Validate(t); err != nil {
				e.dropKeyLocked(t)
			}
		}
	}

	e.record(audit.EventPasswordChanged, account.ID, "")
	return nil
}

// =============================================================================
// ACCOUNT DELETION
// =============================================================================

// DeleteAccount verifies the password, then removes everything the
// account owns: vault, sessions, audit entries, and the record itself.
// The deletion event is written before the account's log is cleared so
// a crash mid-deletion leaves a trace.
func (e *Engine) DeleteAccount(token, password string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, accounts, account, err := e.requireSession(token)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(password, account.PasswordHash) {
		return errInvalidCredentials()
	}

	e.record(audit.EventAccountDeleted, account.ID, "")

	if err := e.st.Delete(store.VaultKey(account.ID)); err != nil {
		return err
	}
	if _, err := e.sessions.InvalidateAll(account.ID); err != nil {
		return err
	}
	for t := range e.vaultKeys {
		if _, err := e.sessions.Validate(t); err != nil {
			e.dropKeyLocked(t)
		}
	}

	if e.log != nil {
		if err := e.log.Clear(account.ID); err != nil {
			return err
		}
	}

	delete(accounts, account.ID)
	return e.saveAccounts(accounts)
}
