// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// twofactor_cmd.go - Two-factor authentication CLI commands for credkeep.
//
// Command: 2fa [subcommand]
//
// Subcommands:
//   enable      Start enrollment: secret + QR, then confirm with a code
//   disable     Turn 2FA off (password required)
//   codes       Regenerate backup codes (--remaining only shows the count)
//
// Examples:
//   credkeep 2fa enable --qr totp.png
//   credkeep 2fa disable
//   credkeep 2fa codes
//   credkeep 2fa codes --remaining

package cli

import (
	"fmt"
	"os"
)

// HandleTwoFactor handles the "2fa" command group.
func HandleTwoFactor(args Args) error {
	parser := NewArgParser(args.Raw)

	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.RequireToken()
	if err != nil {
		return err
	}

	return dispatchTwoFactor(app, token, args, parser)
}

// dispatchTwoFactor routes a parsed 2fa subcommand. Shared by the
// one-shot command and the shell.
func dispatchTwoFactor(app *App, token string, args Args, parser *ArgParser) error {
	switch parser.Subcommand() {
	case "enable":
		return handleTwoFactorEnable(app, token, args, parser)
	case "disable":
		return handleTwoFactorDisable(app, token, args)
	case "codes":
		return handleTwoFactorCodes(app, token, args, parser)
	default:
		return NewUsageError("2fa",
			"unknown subcommand %q\nUsage: credkeep 2fa [enable|disable|codes]",
			parser.Subcommand())
	}
}

// =============================================================================
// ENABLE
// =============================================================================

// handleTwoFactorEnable runs the whole enrollment in one sitting: the
// secret stays pending until a valid code proves the authenticator has
// it, and the backup codes are shown exactly once.
func handleTwoFactorEnable(app *App, token string, args Args, parser *ArgParser) error {
	if err := RequiresTTY("enroll two-factor authentication"); err != nil {
		return err
	}

	enrollment, err := app.Engine.EnableTwoFactor(token)
	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Two-factor enrollment"))
	fmt.Println("Add this secret to your authenticator app:")
	fmt.Printf("\n  %s\n\n", HighlightStyle.Render(enrollment.Secret))
	fmt.Println(DimStyle.Render("URI: " + enrollment.URI))

	if qrPath := parser.Flag("qr"); qrPath != "" {
		if err := os.WriteFile(qrPath, enrollment.QRPNG, 0600); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
		fmt.Printf("QR code written to %s\n", ValueStyle.Render(qrPath))
	}

	code, err := PromptTOTPCode("Code from your authenticator: ")
	if err != nil {
		return err
	}

	backupCodes, err := app.Engine.ConfirmTwoFactor(token, code)
	if err != nil {
		return err
	}

	printBackupCodes(backupCodes)

	if args.JSON {
		return NewJSONResponse("2fa enable", map[string]any{
			"enabled":     true,
			"backupCodes": backupCodes,
		}).Print()
	}
	fmt.Printf("%s two-factor authentication enabled\n", SuccessStyle.Render("OK:"))
	return nil
}

// printBackupCodes renders the one-time backup code sheet.
func printBackupCodes(codes []string) {
	fmt.Println(SectionStyle.Render("Backup codes"))
	fmt.Println(WarningStyle.Render(
		"Store these somewhere safe. Each works once; they will not be shown again."))
	for i, code := range codes {
		fmt.Printf("  %2d. %s\n", i+1, HighlightStyle.Render(code))
	}
}

// =============================================================================
// DISABLE
// =============================================================================

func handleTwoFactorDisable(app *App, token string, args Args) error {
	password, err := PromptPassword("Master password: ")
	if err != nil {
		return err
	}

	if err := app.Engine.DisableTwoFactor(token, password); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("2fa disable", map[string]bool{"enabled": false}).Print()
	}
	fmt.Printf("%s two-factor authentication disabled\n", SuccessStyle.Render("OK:"))
	return nil
}

// =============================================================================
// BACKUP CODES
// =============================================================================

func handleTwoFactorCodes(app *App, token string, args Args, parser *ArgParser) error {
	if parser.BoolFlag("remaining") {
		remaining, err := app.Engine.RemainingBackupCodes(token)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("2fa codes", map[string]int{"remaining": remaining}).Print()
		}
		fmt.Printf("%s %d backup codes remaining\n", RenderLabel("Backup codes"), remaining)
		if remaining == 0 {
			fmt.Println(WarningStyle.Render("All codes used. Regenerate with: credkeep 2fa codes"))
		}
		return nil
	}

	// Regeneration invalidates the old set, so it asks for the password.
	password, err := PromptPassword("Master password: ")
	if err != nil {
		return err
	}

	codes, err := app.Engine.RegenerateBackupCodes(token, password)
	if err != nil {
		return err
	}

	printBackupCodes(codes)

	if args.JSON {
		return NewJSONResponse("2fa codes", map[string]any{"backupCodes": codes}).Print()
	}
	fmt.Printf("%s backup codes regenerated; the old set no longer works\n",
		SuccessStyle.Render("OK:"))
	return nil
}
