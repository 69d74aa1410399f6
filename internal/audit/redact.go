// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import "regexp"

// =============================================================================
// REDACTOR INTERFACE
// =============================================================================

// Redactor defines the interface for secret redaction.
type Redactor interface {
	// Redact replaces sensitive data in the input string.
	Redact(input string) string
	// Name returns the name of this redactor.
	Name() string
}

// =============================================================================
// PATTERN REDACTOR
// =============================================================================

// PatternRedactor redacts text matching a regex pattern.
type PatternRedactor struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

// NewPatternRedactor creates a new pattern-based redactor.
func NewPatternRedactor(name string, pattern *regexp.Regexp, replace string) *PatternRedactor {
	return &PatternRedactor{
		name:    name,
		pattern: pattern,
		replace: replace,
	}
}

// Redact replaces matches with the replacement string.
func (r *PatternRedactor) Redact(input string) string {
	return r.pattern.ReplaceAllString(input, r.replace)
}

// Name returns the redactor name.
func (r *PatternRedactor) Name() string {
	return r.name
}

// =============================================================================
// DEFAULT REDACTORS
// =============================================================================

// defaultPatterns covers the secret shapes credkeep itself handles:
// passwords, TOTP provisioning URIs, raw base32 secrets, and session
// tokens. Anything matching is scrubbed before the event is stored.
var defaultPatterns = []struct {
	name    string
	pattern *regexp.Regexp
	replace string
}{
	{"Password", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*\S+`), "[PASSWORD_REDACTED]"},
	{"OTPAuthURI", regexp.MustCompile(`otpauth://\S+`), "[OTPAUTH_URI_REDACTED]"},
	{"TOTPSecret", regexp.MustCompile(`(?i)secret\s*[=:]\s*[A-Z2-7]{16,}`), "[TOTP_SECRET_REDACTED]"},
	{"SessionToken", regexp.MustCompile(`\b[a-f0-9]{64}\b`), "[TOKEN_REDACTED]"},
	{"Bearer", regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_.]+`), "Bearer [TOKEN_REDACTED]"},
}

// defaultRedactors builds the standard redactor chain.
func defaultRedactors() []Redactor {
	redactors := make([]Redactor, 0, len(defaultPatterns))
	for _, p := range defaultPatterns {
		redactors = append(redactors, NewPatternRedactor(p.name, p.pattern, p.replace))
	}
	return redactors
}
