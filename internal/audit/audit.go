// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/store"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxDetailLength is the maximum detail text length before truncation.
const MaxDetailLength = 200

// MaxEvents caps the stored log. When exceeded, the oldest entries are
// dropped so the log cannot grow without bound.
const MaxEvents = 10000

// =============================================================================
// EVENT KINDS
// =============================================================================

// EventKind is the closed set of security event types.
type EventKind string

const (
	EventRegistration           EventKind = "registration"
	EventLoginSuccess           EventKind = "login_success"
	EventLoginFailure           EventKind = "login_failure"
	EventLogout                 EventKind = "logout"
	EventTwoFactorEnabled       EventKind = "2fa_enabled"
	EventTwoFactorDisabled      EventKind = "2fa_disabled"
	EventTwoFactorFailed        EventKind = "2fa_failed"
	EventBackupCodeUsed         EventKind = "backup_code_used"
	EventBackupCodesRegenerated EventKind = "backup_codes_regenerated"
	EventSessionExpired         EventKind = "session_expired"
	EventAccountLocked          EventKind = "account_locked"
	EventAccountDeleted         EventKind = "account_deleted"
	EventPasswordChanged        EventKind = "password_changed"
	EventVaultExported          EventKind = "vault_exported"
	EventVaultImported          EventKind = "vault_imported"
	EventStoreTampered          EventKind = "store_tampered"
)

// knownKinds rejects events outside the closed set.
var knownKinds = map[EventKind]bool{
	EventRegistration:           true,
	EventLoginSuccess:           true,
	EventLoginFailure:           true,
	EventLogout:                 true,
	EventTwoFactorEnabled:       true,
	EventTwoFactorDisabled:      true,
	EventTwoFactorFailed:        true,
	EventBackupCodeUsed:         true,
	EventBackupCodesRegenerated: true,
	EventSessionExpired:         true,
	EventAccountLocked:          true,
	EventAccountDeleted:         true,
	EventPasswordChanged:        true,
	EventVaultExported:          true,
	EventVaultImported:          true,
	EventStoreTampered:          true,
}

// =============================================================================
// SECURITY EVENT
// =============================================================================

// SecurityEvent is a single entry in the append-only log.
type SecurityEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	AccountID string    `json:"accountId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// ToLogLine formats the event as a single human-readable line.
func (e *SecurityEvent) ToLogLine() string {
	timestamp := e.Timestamp.Format("2006-01-02 15:04:05")

	account := e.AccountID
	if account == "" {
		account = "-"
	}

	detail := ""
	if e.Detail != "" {
		detail = fmt.Sprintf("\"%s\"", e.Detail)
	}

	return fmt.Sprintf("%s | %s | %s | %s", timestamp, e.Kind, account, detail)
}

// =============================================================================
// FILTER
// =============================================================================

// Filter narrows an Events query. Zero values match everything.
type Filter struct {
	// AccountID restricts to one account's events.
	AccountID string

	// Kind restricts to one event kind.
	Kind EventKind

	// Since restricts to events at or after this time.
	Since time.Time

	// Limit caps the number of events returned, newest first.
	// Zero means no limit.
	Limit int
}

func (f Filter) matches(e SecurityEvent) bool {
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger appends security events to the store and reads them back.
//
// Appends are serialized through a mutex. Failed appends are returned
// to the caller but never block the triggering operation from the
// caller's perspective; login still succeeds if the log write fails.
type Logger struct {
	st        store.Store
	redactors []Redactor
	clock     func() time.Time
	mu        sync.Mutex
}

// Option configures the Logger.
type Option func(*Logger)

// WithClock replaces the time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Logger) {
		l.clock = clock
	}
}

// WithRedactors replaces the default redactor chain.
func WithRedactors(redactors []Redactor) Option {
	return func(l *Logger) {
		l.redactors = redactors
	}
}

// NewLogger creates a logger over the given store.
func NewLogger(st store.Store, opts ...Option) *Logger {
	l := &Logger{
		st:        st,
		redactors: defaultRedactors(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one event. Detail text is redacted and truncated
// before it is stored.
func (l *Logger) Record(kind EventKind, accountID, detail string) error {
	if !knownKinds[kind] {
		return fmt.Errorf("unknown event kind: %q", kind)
	}

	for _, r := range l.redactors {
		detail = r.Redact(detail)
	}
	if len(detail) > MaxDetailLength {
		detail = detail[:MaxDetailLength] + "..."
	}

	event := SecurityEvent{
		ID:        crypto.NewID(),
		Timestamp: l.clock().UTC(),
		Kind:      kind,
		AccountID: accountID,
		Detail:    detail,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return err
	}

	events = append(events, event)
	if len(events) > MaxEvents {
		events = events[len(events)-MaxEvents:]
	}

	return l.save(events)
}

// Events returns the events matching the filter, newest first.
func (l *Logger) Events(filter Filter) ([]SecurityEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return nil, err
	}

	matched := make([]SecurityEvent, 0)
	for i := len(events) - 1; i >= 0; i-- {
		if !filter.matches(events[i]) {
			continue
		}
		matched = append(matched, events[i])
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}
	return matched, nil
}

// Clear removes all events belonging to the given account. Events with
// no account (for example store tamper signals) are kept.
func (l *Logger) Clear(accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return err
	}

	kept := events[:0]
	for _, e := range events {
		if e.AccountID != accountID {
			kept = append(kept, e)
		}
	}
	return l.save(kept)
}

// load reads the stored event list. A missing key is an empty log.
func (l *Logger) load() ([]SecurityEvent, error) {
	data, err := l.st.Get(store.KeySecurityEvents)
	if err == store.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}

	var events []SecurityEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse audit log: %w", err)
	}
	return events, nil
}

func (l *Logger) save(events []SecurityEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode audit log: %w", err)
	}
	if err := l.st.Set(store.KeySecurityEvents, data); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
