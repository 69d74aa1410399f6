// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and dispatch for credkeep.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdRegister Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdPasswd
	CmdAccount
	CmdVault
	CmdTwoFactor
	CmdExport
	CmdImport
	CmdAudit
	CmdShell
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON  bool // Output in JSON format
	Quiet bool // Minimal output

	// Command-specific
	Subcommand string
	Username   string
	File       string

	// Raw args (remaining after global flag parsing)
	Raw []string
}

const usageText = `credkeep - local encrypted credential manager

Credkeep keeps your credentials in a per-account vault encrypted with
AES-256-GCM under a key derived from your master password. Everything
stays on this machine; there is no server and no sync.

Usage:
  credkeep register              Create an account
  credkeep login [username]      Log in (prompts for password)
  credkeep logout                End the current session
  credkeep status                Show session and account state
  credkeep passwd                Change the master password
  credkeep account delete        Delete the account and its vault
  credkeep vault <subcommand>    Work with vault entries
  credkeep 2fa <subcommand>      Manage two-factor authentication
  credkeep export <file>         Export the vault, password-protected
  credkeep import <file>         Import a previously exported vault
  credkeep audit [list|clear]    Review the security event log
  credkeep shell                 Interactive shell (one login, many ops)
  credkeep version               Show version information
  credkeep help                  Show this help

Vault Commands:
  credkeep vault add [name]         Add an entry (prompts for fields)
  credkeep vault list               List entries
    --tag TAG                       Filter by tag
  credkeep vault get <name|id>      Show one entry
    --show-password                 Print the password (hidden by default)
  credkeep vault search <query>     Search names and URLs
  credkeep vault update <name|id>   Update fields of an entry
    --url URL --username USER       New values (password is prompted)
    --notes TEXT --tags a,b,c
  credkeep vault delete <name|id>   Delete an entry
    --confirm                       Skip the interactive prompt
  credkeep vault reuse              Find entries sharing a password

Two-Factor Commands:
  credkeep 2fa enable               Start enrollment (QR + confirm code)
    --qr FILE                       Write the QR code PNG to FILE
  credkeep 2fa disable              Turn 2FA off (password required)
  credkeep 2fa codes                Regenerate backup codes
    --remaining                     Only show how many codes are left

Audit Commands:
  credkeep audit list               Show recent security events
    --limit N                       Show at most N events (default: 50)
    --kind KIND                     Filter by event kind
    --since DUR                     Only events in the last DUR (1h, 24h, 7d)
  credkeep audit clear --confirm    Clear your account's events

Global Flags:
  --json          Output in JSON format
  -q, --quiet     Minimal output

Examples:
  credkeep register                     Create an account interactively
  credkeep login alice                  Log in as alice
  credkeep vault add github             Store a credential for github
  credkeep vault get github --json      Entry as JSON (password included)
  credkeep vault search bank            Find entries matching "bank"
  credkeep 2fa enable --qr totp.png     Enroll an authenticator app
  credkeep export backup.ckv            Password-protected vault export
  credkeep audit list --since 24h       Yesterday's security events
  credkeep shell                        Stay logged in for many operations

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("credkeep version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Split from Parse for tests.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// Bare invocation shows help; there is no default command because
	// every command touches the vault.
	if len(remaining) == 0 {
		return CmdHelp, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 {
		parsedArgs.Subcommand = remaining[0]
	}

	switch cmd {
	case "register":
		if len(remaining) > 0 {
			parsedArgs.Username = remaining[0]
		}
		return CmdRegister, parsedArgs

	case "login":
		if len(remaining) > 0 {
			parsedArgs.Username = remaining[0]
		}
		return CmdLogin, parsedArgs

	case "logout":
		return CmdLogout, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "passwd", "change-password":
		return CmdPasswd, parsedArgs

	case "account":
		return CmdAccount, parsedArgs

	case "vault", "v":
		return CmdVault, parsedArgs

	case "2fa", "totp":
		return CmdTwoFactor, parsedArgs

	case "export":
		if len(remaining) > 0 {
			parsedArgs.File = remaining[0]
		}
		return CmdExport, parsedArgs

	case "import":
		if len(remaining) > 0 {
			parsedArgs.File = remaining[0]
		}
		return CmdImport, parsedArgs

	case "audit":
		return CmdAudit, parsedArgs

	case "shell", "repl":
		return CmdShell, parsedArgs

	case "version", "--version", "-v":
		return CmdVersion, parsedArgs

	case "help", "--help", "-h":
		return CmdHelp, parsedArgs

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var parsedArgs Args
	remaining := make([]string, 0, len(argv))

	for _, arg := range argv {
		switch arg {
		case "--json":
			parsedArgs.JSON = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}
