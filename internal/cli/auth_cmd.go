// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Account and session CLI commands for credkeep.
//
// Command: register            Create an account
// Command: login [username]    Start a session
// Command: logout              End the session
// Command: status              Show session and account state
// Command: passwd              Change the master password
// Command: account delete      Delete the account and its vault
//
// Examples:
//   credkeep register
//   credkeep login alice
//   credkeep status --json
//   credkeep passwd
//   credkeep account delete --confirm

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/credkeep/internal/auth"
)

// =============================================================================
// REGISTER
// =============================================================================

// HandleRegister handles the "register" command.
func HandleRegister(args Args) error {
	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	username := args.Username
	if username == "" {
		username, err = PromptLine("Username: ")
		if err != nil {
			return err
		}
	}

	fmt.Println(DimStyle.Render(
		"Passwords need at least 12 characters with upper, lower, digit, and symbol."))

	password, err := PromptNewPassword("Master password: ")
	if err != nil {
		return err
	}

	account, err := app.Engine.Register(username, password)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("register", map[string]string{
			"id":       account.ID,
			"username": account.Username,
		}).Print()
	}

	fmt.Printf("%s account %s created\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(account.Username))
	fmt.Println(DimStyle.Render("Log in with: credkeep login " + account.Username))
	return nil
}

// =============================================================================
// LOGIN
// =============================================================================

// HandleLogin handles the "login" command.
//
// When the account has 2FA enabled the first attempt returns a
// TWO_FACTOR_REQUIRED error; the handler then prompts for the code and
// retries with the same password.
func HandleLogin(args Args) error {
	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	username := args.Username
	if username == "" {
		username, err = PromptLine("Username: ")
		if err != nil {
			return err
		}
	}

	password, err := PromptPassword("Master password: ")
	if err != nil {
		return err
	}

	s, err := app.Engine.Login(username, password, "")
	if errors.Is(err, &auth.AuthError{Code: auth.CodeTwoFactorRequired}) {
		code, promptErr := PromptTOTPCode("Two-factor code (or backup code): ")
		if promptErr != nil {
			return promptErr
		}
		s, err = app.Engine.Login(username, password, code)
	}
	if err != nil {
		return err
	}

	if err := SaveSessionToken(s.Token); err != nil {
		return fmt.Errorf("logged in but failed to persist session: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("login", map[string]string{
			"accountId": s.AccountID,
			"expiresAt": s.ExpiresAt.Format(time.RFC3339),
		}).Print()
	}

	fmt.Printf("%s logged in as %s\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(username))
	fmt.Println(DimStyle.Render(fmt.Sprintf(
		"Session expires %s (or after 30 minutes idle)",
		s.ExpiresAt.Local().Format("15:04"))))
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// HandleLogout handles the "logout" command. Idempotent: logging out
// without a session succeeds.
func HandleLogout(args Args) error {
	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token := LoadSessionToken()
	if token != "" {
		if err := app.Engine.Logout(token); err != nil {
			return err
		}
	}
	if err := ClearSessionToken(); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"loggedOut": true}).Print()
	}
	fmt.Printf("%s logged out\n", SuccessStyle.Render("OK:"))
	return nil
}

// =============================================================================
// STATUS
// =============================================================================

// StatusData is the JSON output format for the status command.
type StatusData struct {
	LoggedIn         bool      `json:"loggedIn"`
	Username         string    `json:"username,omitempty"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled,omitempty"`
	BackupCodesLeft  int       `json:"backupCodesLeft,omitempty"`
	SessionExpiresAt time.Time `json:"sessionExpiresAt,omitempty"`
	LastActivity     time.Time `json:"lastActivity,omitempty"`
	EntryCount       int       `json:"entryCount"`
}

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	return printStatus(app, args)
}

// printStatus renders session and account state. Shared by the
// one-shot command and the shell.
func printStatus(app *App, args Args) error {
	token := LoadSessionToken()
	if token == "" || !app.Engine.IsAuthenticated(token) {
		if args.JSON {
			return NewJSONResponse("status", StatusData{LoggedIn: false}).Print()
		}
		fmt.Println(DimStyle.Render("Not logged in. Use: credkeep login"))
		return nil
	}

	account, err := app.Engine.Account(token)
	if err != nil {
		return err
	}
	s, err := app.Sessions.Validate(token)
	if err != nil {
		return err
	}

	data := StatusData{
		LoggedIn:         true,
		Username:         account.Username,
		TwoFactorEnabled: account.TwoFactorEnabled(),
		SessionExpiresAt: s.ExpiresAt,
		LastActivity:     s.LastActivity,
	}
	if account.TwoFactorEnabled() {
		data.BackupCodesLeft = account.BackupCodes.Remaining()
	}

	// Entry count needs the vault key, which a fresh process does not
	// hold. Shown as unknown rather than prompting for a password just
	// to print a number.
	if app.Engine.HasVaultKey(token) {
		if entries, err := app.Vault.ListEntries(token); err == nil {
			data.EntryCount = len(entries)
		}
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	fmt.Println(TitleStyle.Render("credkeep status"))
	fmt.Printf("%s %s\n", RenderLabel("Account"), ValueStyle.Render(account.Username))
	twoFactor := "disabled"
	if account.TwoFactorEnabled() {
		twoFactor = fmt.Sprintf("enabled (%d backup codes left)", data.BackupCodesLeft)
	}
	fmt.Printf("%s %s\n", RenderLabel("Two-factor"), ValueStyle.Render(twoFactor))
	fmt.Printf("%s %s\n", RenderLabel("Session ends"),
		ValueStyle.Render(s.ExpiresAt.Local().Format(time.RFC822)))
	fmt.Printf("%s %s\n", RenderLabel("Last activity"),
		ValueStyle.Render(s.LastActivity.Local().Format(time.RFC822)))
	return nil
}

// =============================================================================
// PASSWORD CHANGE
// =============================================================================

// HandlePasswd handles the "passwd" command. The vault is re-encrypted
// under the new password and every other session of the account is
// invalidated.
func HandlePasswd(args Args) error {
	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.RequireToken()
	if err != nil {
		return err
	}

	current, err := PromptPassword("Current password: ")
	if err != nil {
		return err
	}

	// Re-encryption needs the current vault key in memory; a fresh
	// process re-derives it from the password just collected.
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

	if args.JSON {
		return NewJSONResponse("passwd", map[string]bool{"changed": true}).Print()
	}
	fmt.Printf("%s password changed, vault re-encrypted\n", SuccessStyle.Render("OK:"))
	fmt.Println(DimStyle.Render("Other sessions of this account were logged out."))
	return nil
}

// =============================================================================
// ACCOUNT DELETION
// =============================================================================

// HandleAccount handles the "account" command group.
func HandleAccount(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "delete":
		return handleAccountDelete(args, parser)
	default:
		return NewUsageError("account", "unknown subcommand %q\nUsage: credkeep account delete", parser.Subcommand())
	}
}

// handleAccountDelete deletes the logged-in account, its vault, its
// sessions, and its audit history.
func handleAccountDelete(args Args, parser *ArgParser) error {
	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.RequireToken()
	if err != nil {
		return err
	}

	account, err := app.Engine.Account(token)
	if err != nil {
		return err
	}

	confirmed, err := ConfirmDangerousAction(parser.BoolFlag("confirm"),
		fmt.Sprintf("delete account %q with its entire vault", account.Username),
		"DELETE", args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println(DimStyle.Render("Cancelled."))
		return nil
	}

	password, err := PromptPassword("Master password: ")
	if err != nil {
		return err
	}

	if err := app.Engine.DeleteAccount(token, password); err != nil {
		return err
	}
	if err := ClearSessionToken(); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("account delete", map[string]bool{"deleted": true}).Print()
	}
	fmt.Printf("%s account %s deleted\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(account.Username))
	return nil
}
