// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for all credkeep CLI commands.
//
// STANDARDIZED PATTERN:
//   - Handlers ALWAYS return errors (never print and return nil)
//   - main decides how to display them and which exit code to use
//   - Engine error types map to stable exit codes for scripting

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/vault"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitAuthError indicates authentication failure or a missing session
	ExitAuthError = 4
	// ExitLockedError indicates the account is in a lockout window
	ExitLockedError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitValidationError indicates rejected user input
	ExitValidationError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError represents invalid command usage. main prints the message
// followed by a pointer to help.
type UsageError struct {
	Command string
	Message string
}

func (e *UsageError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Message)
	}
	return e.Message
}

// NewUsageError creates a UsageError for the given command.
func NewUsageError(command, format string, args ...any) *UsageError {
	return &UsageError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the appropriate exit code.
// Engine error types get dedicated codes so scripts can branch on them.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	var tty *TTYRequiredError
	if errors.As(err, &tty) {
		return ExitUsageError
	}

	var validation *auth.ValidationError
	if errors.As(err, &validation) {
		return ExitValidationError
	}

	if errors.Is(err, &auth.AuthError{Code: auth.CodeAccountLocked}) {
		return ExitLockedError
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return ExitAuthError
	}

	var expired *auth.SessionExpiredError
	if errors.As(err, &expired) {
		return ExitAuthError
	}

	if errors.Is(err, auth.ErrRateLimited) {
		return ExitAuthError
	}

	if errors.Is(err, vault.ErrEntryNotFound) {
		return ExitNotFoundError
	}

	return ExitGeneralError
}
