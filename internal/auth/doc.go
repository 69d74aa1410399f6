// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth orchestrates accounts: registration, login with optional
// TOTP two-factor, lockout, logout, password change, and deletion.
//
// The engine is the only writer of account records. All mutations of one
// account's counters go through a single mutex so concurrent failed
// logins cannot lose updates. Session identity is explicit: every
// operation that acts on behalf of a user takes the session token, there
// is no ambient current user.
//
// Failed password attempts and failed two-factor attempts are tracked in
// separate counters with separate ceilings (5 and 3). Either ceiling
// locks the account for a fixed window; during the window no password
// check is performed at all.
//
// The derived vault key lives only in the engine's memory, keyed by
// session token, and is zeroed on logout, expiry, and password change.
//
// # Key Types
//
//   - Engine: the orchestrator
//   - Account: the stored identity record
//   - AuthError / ValidationError / SessionExpiredError / CryptoError:
//     the only error types crossing the engine's public boundary
//
// # Usage
//
//	eng := auth.NewEngine(st, sessions, logger)
//
//	if _, err := eng.Register("alice", password); err != nil {
//		return err
//	}
//	s, err := eng.Login("alice", password, "")
package auth
