// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for credkeep.
//
// The package is a thin shell over the engine packages (internal/auth,
// internal/vault, internal/session, internal/audit): it parses arguments,
// prompts for secrets when stdin is a TTY, and renders results. No
// credential logic lives here.
//
// # Key Types
//
//   - Command: enumeration of all available CLI commands
//   - Args: parsed command-line arguments with global and per-command flags
//   - App: the wired engine (store, audit log, sessions, auth, vault)
//     shared by all command handlers
//
// # Usage
//
// Parse and dispatch:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdLogin:
//	    err = cli.HandleLogin(args)
//	case cli.CmdVault:
//	    err = cli.HandleVault(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Account commands:
//   - register, login, logout, status, passwd, account delete
//
// Vault commands:
//   - vault add|list|get|search|update|delete|reuse
//
// Two-factor commands:
//   - 2fa enable|disable|codes
//
// Data commands:
//   - export, import, audit [list|clear]
//
// Interactive:
//   - shell: a liner-based REPL that keeps one login for many operations
//
// All non-interactive commands support --json output.
package cli
