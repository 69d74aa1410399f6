// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - Interactive shell for credkeep.
//
// Command: shell
//
// One process, one login, many operations: the vault key derived at
// login stays in memory for the whole shell session, so entries open
// without re-entering the password. The session sweeper and the
// database file watcher run for the shell's lifetime.
//
// Examples:
//   credkeep shell
//   credkeep> vault list
//   credkeep> vault get github --show-password
//   credkeep> audit list --since 1h
//   credkeep> exit

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ShellCLI provides input history and line editing for the shell.
// Supports arrow keys for history navigation.
type ShellCLI struct {
	line        *liner.State
	historyFile string
}

// NewShellCLI creates a ShellCLI with input history support.
func NewShellCLI() *ShellCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "shell_history")

	sc := &ShellCLI{
		line:        line,
		historyFile: historyFile,
	}
	sc.LoadHistory()
	return sc
}

// LoadHistory loads command history from file.
func (c *ShellCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ShellCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with secure permissions.
// Only command lines end up here; secrets are read through no-echo
// prompts and never touch history.
func (c *ShellCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ShellCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SHELL
// =============================================================================

const shellHelpText = `Shell commands:
  login [username]          Log in (also: register)
  logout                    End the session
  status                    Show session and account state
  passwd                    Change the master password
  vault <subcommand>        add|list|get|search|update|delete|reuse
  2fa <subcommand>          enable|disable|codes
  export <file>             Password-protected vault export
  import <file>             Import an exported vault
  audit [list|clear]        Security event log
  help                      This text
  exit, quit                Leave the shell
`

// HandleShell handles the "shell" command: a liner REPL over one
// long-lived App.
func HandleShell(args Args) error {
	if err := RequiresTTY("run the shell"); err != nil {
		return err
	}

	app, err := OpenApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	input := NewShellCLI()
	defer input.Close()

	fmt.Println(TitleStyle.Render("credkeep shell"))
	fmt.Println(DimStyle.Render(`Type "help" for commands, "exit" to leave.`))

	// Resume a persisted session when one is still live. The vault
	// stays locked until a command needs it.
	token := LoadSessionToken()
	if token != "" && !app.Engine.IsAuthenticated(token) {
		token = ""
		_ = ClearSessionToken()
	}
	if token == "" {
		fmt.Println(DimStyle.Render(`Not logged in. Use "login" or "register".`))
	}

	for {
		line, err := input.ReadInput(PromptStyle.Render("credkeep> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl+C at the prompt exits
				fmt.Println()
				shellLogoutNote(app, token)
				return nil
			}
			// EOF (Ctrl+D) or other error exits gracefully
			fmt.Println()
			shellLogoutNote(app, token)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		rest := fields[1:]

		switch cmd {
		case "exit", "quit":
			shellLogoutNote(app, token)
			return nil
		case "help", "?":
			fmt.Print(shellHelpText)
			continue
		}

		newToken, err := shellDispatch(app, token, cmd, rest, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)

			var expired *auth.SessionExpiredError
			if errors.As(err, &expired) {
				token = ""
				_ = ClearSessionToken()
			}
			continue
		}
		token = newToken
	}
}

// shellLogoutNote reminds the user whether their session outlives the
// shell. The session itself is left alone: the token file still names
// it and one-shot commands can resume it.
func shellLogoutNote(app *App, token string) {
	if token != "" && app.Engine.IsAuthenticated(token) {
		fmt.Println(DimStyle.Render(
			`Session is still active. "credkeep logout" ends it.`))
	}
}

// shellDispatch executes one shell command and returns the (possibly
// changed) session token.
func shellDispatch(app *App, token, cmd string, rest []string, global Args) (string, error) {
	args := global
	args.Raw = rest
	if len(rest) > 0 {
		args.Subcommand = rest[0]
	}

	switch cmd {
	case "register":
		username := ""
		if len(rest) > 0 {
			username = rest[0]
		}
		return token, shellRegister(app, username)

	case "login":
		username := ""
		if len(rest) > 0 {
			username = rest[0]
		}
		newToken, err := shellLogin(app, username)
		if err != nil {
			return token, err
		}
		return newToken, nil

	case "logout":
		if token != "" {
			if err := app.Engine.Logout(token); err != nil {
				return token, err
			}
		}
		if err := ClearSessionToken(); err != nil {
			return token, err
		}
		fmt.Printf("%s logged out\n", SuccessStyle.Render("OK:"))
		return "", nil

	case "status", "s":
		return token, printStatus(app, args)

	case "passwd":
		if token == "" {
			return token, &auth.SessionExpiredError{}
		}
		return token, shellPasswd(app, token)

	case "vault", "v":
		if token == "" {
			return token, &auth.SessionExpiredError{}
		}
		if err := app.EnsureUnlocked(token); err != nil {
			return token, err
		}
		return token, dispatchVault(app, token, args, NewArgParser(rest))

	case "2fa", "totp":
		if token == "" {
			return token, &auth.SessionExpiredError{}
		}
		return token, dispatchTwoFactor(app, token, args, NewArgParser(rest))

	case "audit":
		if token == "" {
			return token, &auth.SessionExpiredError{}
		}
		account, err := app.Engine.Account(token)
		if err != nil {
			return token, err
		}
		return token, dispatchAudit(app, account.ID, args, NewArgParser(rest))

	case "export":
		if token == "" {
			return token, &auth.SessionExpiredError{}
		}
		if len(rest) == 0 {
			return token, NewUsageError("export", "output file required")
		}
		if err := app.EnsureUnlocked(token); err != nil {
			return token, err
		}
		return token, exportTo(app, token, rest[0], args)

	case "import":
		if token == "" {
			return token, &auth.SessionExpiredError{}
		}
		if len(rest) == 0 {
			return token, NewUsageError("import", "input file required")
		}
		if err := app.EnsureUnlocked(token); err != nil {
			return token, err
		}
		return token, importFrom(app, token, rest[0], args)

	default:
		return token, NewUsageError("shell", `unknown command %q (try "help")`, cmd)
	}
}

// shellRegister creates an account inside the shell.
func shellRegister(app *App, username string) error {
	var err error
	if username == "" {
		if username, err = PromptLine("Username: "); err != nil {
			return err
		}
	}

	password, err := PromptNewPassword("Master password: ")
	if err != nil {
		return err
	}

	account, err := app.Engine.Register(username, password)
	if err != nil {
		return err
	}
	fmt.Printf("%s account %s created\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(account.Username))
	return nil
}

// shellLogin logs in inside the shell. The derived vault key stays in
// this process, so vault commands need no extra unlock.
func shellLogin(app *App, username string) (string, error) {
	var err error
	if username == "" {
		if username, err = PromptLine("Username: "); err != nil {
			return "", err
		}
	}

	password, err := PromptPassword("Master password: ")
	if err != nil {
		return "", err
	}

	s, err := app.Engine.Login(username, password, "")
	if errors.Is(err, &auth.AuthError{Code: auth.CodeTwoFactorRequired}) {
		code, promptErr := PromptTOTPCode("Two-factor code (or backup code): ")
		if promptErr != nil {
			return "", promptErr
		}
		s, err = app.Engine.Login(username, password, code)
	}
	if err != nil {
		return "", err
	}

	if err := SaveSessionToken(s.Token); err != nil {
		return "", fmt.Errorf("logged in but failed to persist session: %w", err)
	}
	fmt.Printf("%s logged in as %s\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(username))
	return s.Token, nil
}

// shellPasswd changes the master password inside the shell.
func shellPasswd(app *App, token string) error {
	current, err := PromptPassword("Current password: ")
	if err != nil {
		return err
	}
	if err := app.Engine.Unlock(token, current); err != nil {
		return err
	}

	newPassword, err := PromptNewPassword("New password: ")
	if err != nil {
		return err
	}

	if err := app.Engine.ChangePassword(token, current, newPassword); err != nil {
		return err
	}
	fmt.Printf("%s password changed, vault re-encrypted\n", SuccessStyle.Render("OK:"))
	return nil
}
