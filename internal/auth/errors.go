// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// AuthCode is the machine-readable reason attached to an AuthError.
type AuthCode string

const (
	// CodeInvalidCredentials covers unknown usernames and wrong
	// passwords alike, so a caller can never probe which one failed.
	CodeInvalidCredentials AuthCode = "INVALID_CREDENTIALS"

	// CodeAccountLocked means the lockout window is active.
	CodeAccountLocked AuthCode = "ACCOUNT_LOCKED"

	// CodeTwoFactorRequired means the password was correct but a
	// second factor must be supplied.
	CodeTwoFactorRequired AuthCode = "TWO_FACTOR_REQUIRED"

	// CodeTwoFactorInvalid means the supplied code matched neither the
	// TOTP window nor an unused backup code.
	CodeTwoFactorInvalid AuthCode = "TWO_FACTOR_INVALID"
)

// AuthError is an authentication failure with a machine-readable code.
// Its message is safe to show to the end user.
type AuthError struct {
	Code    AuthCode
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is matches another AuthError with the same code, so
// errors.Is(err, &AuthError{Code: CodeAccountLocked}) works regardless
// of message text.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newAuthError(code AuthCode, format string, args ...any) *AuthError {
	return &AuthError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// errInvalidCredentials is the one message used for every credential
// failure.
func errInvalidCredentials() *AuthError {
	return newAuthError(CodeInvalidCredentials, "invalid username or password")
}

// ValidationError is malformed or missing caller input. Always safe to
// show verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SessionExpiredError means the supplied session token referenced a
// session whose idle or absolute deadline passed, or that no longer
// exists.
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string {
	return "session expired, please log in again"
}

// CryptoError wraps a failure inside a cryptographic primitive. The
// underlying cause is kept for logging but never rendered to the end
// user.
type CryptoError struct {
	Op    string
	cause error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("cryptographic operation failed: %s", e.Op)
}

// Unwrap exposes the cause for internal logging. Callers must not
// surface it.
func (e *CryptoError) Unwrap() error {
	return e.cause
}

func newCryptoError(op string, cause error) *CryptoError {
	return &CryptoError{Op: op, cause: cause}
}

// ErrRateLimited is returned when login attempts arrive faster than the
// per-username limiter allows. Distinct from lockout: it passes with
// time, no counter is touched.
var ErrRateLimited = errors.New("too many attempts, slow down")
