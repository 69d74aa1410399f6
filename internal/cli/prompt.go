// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Interactive input prompts for the credkeep CLI.
//
// Secrets are read with golang.org/x/term so they never echo. All
// prompts require stdin to be a TTY; non-interactive callers must pass
// values via flags instead.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/crypto"
)

// PromptLine reads a single line of visible input.
func PromptLine(prompt string) (string, error) {
	if err := RequiresTTY("read input"); err != nil {
		return "", err
	}

	fmt.Print(PromptStyle.Render(prompt))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// PromptPassword reads a password without echoing it.
// The returned string should be handed to the engine and not retained.
func PromptPassword(prompt string) (string, error) {
	if err := RequiresTTY("read a password"); err != nil {
		return "", err
	}

	fmt.Print(PromptStyle.Render(prompt))

	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := string(passBytes)
	crypto.ZeroBytes(passBytes)
	return password, nil
}

// PromptNewPassword reads a new password twice and checks policy before
// returning it. Re-prompts are the caller's job; a mismatch or weak
// password is returned as an error.
func PromptNewPassword(prompt string) (string, error) {
	password, err := PromptPassword(prompt)
	if err != nil {
		return "", err
	}

	if result := auth.ValidatePasswordStrength(password); !result.Valid {
		for _, reason := range result.Reasons {
			fmt.Fprintf(os.Stderr, "  %s %s\n", ErrorStyle.Render("-"), reason)
		}
		return "", &auth.ValidationError{Field: "password", Message: "does not meet the password policy"}
	}

	confirm, err := PromptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", &auth.ValidationError{Field: "password", Message: "passwords do not match"}
	}

	return password, nil
}

// PromptTOTPCode reads a 6-digit authenticator code or a backup code.
// Visible input: codes are single-use and short-lived.
func PromptTOTPCode(prompt string) (string, error) {
	code, err := PromptLine(prompt)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(code, " ", ""), nil
}
