// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package totp provides two-factor authentication for credkeep.
//
// This package implements:
//   - TOTP secret generation and token validation (RFC 6238, 30s period,
//     one period of clock-drift tolerance in each direction)
//   - Provisioning URIs and QR images for authenticator app enrollment
//   - One-time backup codes, hashed at rest and consumed exactly once
//
// # Usage
//
// Enroll a user:
//
//	secret, err := totp.GenerateSecret()
//	uri := totp.BuildProvisioningURI(secret, "alice", "credkeep")
//	png, err := totp.RenderQRCode(uri)
//
// Validate a login code:
//
//	if totp.ValidateToken(code, secret, time.Now()) { ... }
//
// The secret must never be written to logs or audit events; only the
// provisioning URI and QR image may carry it, and only to the enrolling
// user's terminal.
package totp
