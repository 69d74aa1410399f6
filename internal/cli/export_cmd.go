// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Vault export and import CLI commands for credkeep.
//
// Command: export <file>    Write a password-protected vault export
// Command: import <file>    Merge a previously exported vault
//
// The export file carries its own salt and derives its own key, so it
// opens with nothing but the password it was exported under. Import
// merges entries by ID: colliding IDs are replaced by the imported
// version.
//
// Examples:
//   credkeep export backup.ckv
//   credkeep import backup.ckv

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/credkeep/internal/util"
)

// HandleExport handles the "export" command.
//
// Export requires the master password even with a live session: writing
// every secret to a file needs explicit consent, not just session
// possession.
func HandleExport(args Args) error {
	if args.File == "" {
		return NewUsageError("export", "output file required\nUsage: credkeep export <file>")
	}

	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.RequireToken()
	if err != nil {
		return err
	}
	if err := app.EnsureUnlocked(token); err != nil {
		return err
	}

	return exportTo(app, token, args.File, args)
}

// exportTo runs the export flow for an unlocked session. Shared by the
// one-shot command and the shell.
func exportTo(app *App, token, file string, args Args) error {
	password, err := PromptPassword("Master password (confirms export): ")
	if err != nil {
		return err
	}

	data, err := app.Vault.Export(token, password)
	if err != nil {
		return err
	}

	if err := util.AtomicWriteFile(file, data, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("export", map[string]any{
			"file":  file,
			"bytes": len(data),
		}).Print()
	}
	fmt.Printf("%s vault exported to %s\n",
		SuccessStyle.Render("OK:"), ValueStyle.Render(file))
	fmt.Println(DimStyle.Render("The file is encrypted; it opens only with your master password."))
	return nil
}

// HandleImport handles the "import" command.
func HandleImport(args Args) error {
	if args.File == "" {
		return NewUsageError("import", "input file required\nUsage: credkeep import <file>")
	}

	app, err := OpenApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.RequireToken()
	if err != nil {
		return err
	}
	if err := app.EnsureUnlocked(token); err != nil {
		return err
	}

	return importFrom(app, token, args.File, args)
}

// importFrom runs the import flow for an unlocked session. Shared by
// the one-shot command and the shell.
func importFrom(app *App, token, file string, args Args) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	password, err := PromptPassword("Password the export was made with: ")
	if err != nil {
		return err
	}

	count, err := app.Vault.Import(token, password, data)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("import", map[string]int{"imported": count}).Print()
	}
	fmt.Printf("%s imported %d entries from %s\n",
		SuccessStyle.Render("OK:"), count, ValueStyle.Render(file))
	return nil
}
