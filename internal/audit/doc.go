// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit provides the append-only security event log.
//
// Every security-relevant action (registration, login, logout, 2FA
// changes, lockouts, password changes) produces a SecurityEvent that is
// appended to the store. Event detail text passes through redactors so
// that passwords, tokens, and TOTP secrets can never reach the log.
//
// # Key Types
//
//   - SecurityEvent: one log entry with a closed set of event kinds
//   - Logger: append, filtered read, and per-account clear
//   - Redactor / PatternRedactor: secret scrubbing applied on append
//
// # Usage
//
//	logger := audit.NewLogger(st)
//	logger.Record(audit.EventLoginSuccess, accountID, "login from cli")
//
//	events, err := logger.Events(audit.Filter{AccountID: accountID})
package audit
