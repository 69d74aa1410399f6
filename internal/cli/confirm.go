// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Unified confirmation handling for destructive commands.
//
// One pattern for every destructive operation:
//  1. If --confirm flag is present, proceed without prompting
//  2. If --json mode, require --confirm (no interactive prompts in JSON mode)
//  3. If stdin is not a TTY, require --confirm (can't prompt)
//  4. Otherwise, show an interactive y/N prompt

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RequireConfirmation checks if the user has confirmed a destructive action.
//
// Parameters:
//
//	confirmFlag - true if --confirm was passed
//	action      - description of the action (e.g., "delete entry mail")
//	jsonMode    - true if --json was passed
//
// Returns true if confirmed, false if cancelled, and an error when
// confirmation is required but cannot be obtained.
func RequireConfirmation(confirmFlag bool, action string, jsonMode bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}

	if jsonMode {
		return false, NewUsageError("", "JSON mode requires --confirm for destructive action: %s", action)
	}

	if !IsTTY() {
		return false, NewUsageError("", "--confirm required to %s (stdin is not a terminal)", action)
	}

	fmt.Printf("%s %s? [y/N] ", WarningStyle.Render("Confirm:"), action)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ConfirmDangerousAction is a specialized confirmation for operations that
// cannot be undone (account deletion, audit clear). The user must type the
// given phrase exactly.
func ConfirmDangerousAction(confirmFlag bool, action, confirmPhrase string, jsonMode bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}

	if jsonMode {
		return false, NewUsageError("", "JSON mode requires --confirm for destructive action: %s", action)
	}

	if !IsTTY() {
		return false, NewUsageError("", "--confirm required to %s (stdin is not a terminal)", action)
	}

	fmt.Printf("%s This will %s and cannot be undone.\n", ErrorStyle.Render("WARNING:"), action)
	fmt.Printf("Type %s to continue: ", HighlightStyle.Render(confirmPhrase))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	return strings.TrimSpace(line) == confirmPhrase, nil
}
