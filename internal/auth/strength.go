// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "unicode"

// MinPasswordLength is the master password floor.
const MinPasswordLength = 12

// StrengthResult is the outcome of the password policy check. Reasons
// are user-facing and list every violated rule, not just the first.
type StrengthResult struct {
	Valid   bool
	Reasons []string
}

// ValidatePasswordStrength checks the master password policy: at least
// MinPasswordLength characters with at least one uppercase letter, one
// lowercase letter, one digit, and one symbol. Pure function.
func ValidatePasswordStrength(password string) StrengthResult {
	var reasons []string

	if len(password) < MinPasswordLength {
		reasons = append(reasons, "must be at least 12 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if !hasUpper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "must contain a digit")
	}
	if !hasSymbol {
		reasons = append(reasons, "must contain a symbol")
	}

	return StrengthResult{
		Valid:   len(reasons) == 0,
		Reasons: reasons,
	}
}
