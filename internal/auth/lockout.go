// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "time"

// =============================================================================
// LOCKOUT POLICY
// =============================================================================

const (
	// MaxPasswordFailures locks the account at this many consecutive
	// wrong passwords.
	MaxPasswordFailures = 5

	// MaxTwoFactorFailures locks the account at this many consecutive
	// failed second-factor codes. Tracked independently of password
	// failures.
	MaxTwoFactorFailures = 3

	// LockoutDuration is the hard wait once either ceiling is hit.
	// There is no bypass path.
	LockoutDuration = 15 * time.Minute
)

// IsLocked reports whether the lockout window is active at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// LockRemaining returns how long until the lockout window ends. Zero if
// not locked.
func (a *Account) LockRemaining(now time.Time) time.Duration {
	if !a.IsLocked(now) {
		return 0
	}
	return a.LockedUntil.Sub(now)
}

// recordPasswordFailure bumps the password counter and returns true if
// the account just crossed into lockout.
func (a *Account) recordPasswordFailure(now time.Time) bool {
	a.FailedLoginAttempts++
	a.LastFailure = now
	if a.FailedLoginAttempts >= MaxPasswordFailures {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
		return true
	}
	return false
}

// recordTwoFactorFailure bumps the second-factor counter and returns
// true if the account just crossed into lockout.
func (a *Account) recordTwoFactorFailure(now time.Time) bool {
	a.FailedTwoFactorAttempts++
	a.LastFailure = now
	if a.FailedTwoFactorAttempts >= MaxTwoFactorFailures {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
		return true
	}
	return false
}

// resetFailures clears both counters and the lockout marker. Called on
// fully successful login; an expired lockout plus a correct password
// lands here too.
func (a *Account) resetFailures() {
	a.FailedLoginAttempts = 0
	a.FailedTwoFactorAttempts = 0
	a.LastFailure = time.Time{}
	a.LockedUntil = nil
}
