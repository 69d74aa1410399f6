// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/store"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// IdleTimeout expires a session after this much inactivity.
	IdleTimeout = 30 * time.Minute

	// AbsoluteTimeout expires a session this long after creation,
	// regardless of activity.
	AbsoluteTimeout = 8 * time.Hour

	// SweepInterval is how often the background sweeper runs.
	SweepInterval = 30 * time.Second
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned for unknown or removed tokens.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session's idle or absolute
	// deadline has been reached.
	ErrSessionExpired = errors.New("session expired")
)

// Clock is the injectable time source.
type Clock func() time.Time

// =============================================================================
// SESSION
// =============================================================================

// Session is one authenticated session.
type Session struct {
	// Token is the opaque session identifier handed to the caller.
	Token string `json:"token"`

	// AccountID is the authenticated account.
	AccountID string `json:"accountId"`

	// CreatedAt is the creation time.
	CreatedAt time.Time `json:"createdAt"`

	// LastActivity is the last time the session was touched.
	LastActivity time.Time `json:"lastActivity"`

	// ExpiresAt is the absolute deadline, fixed at creation.
	ExpiresAt time.Time `json:"expiresAt"`

	// Device describes the client ("cli", "shell").
	Device string `json:"device,omitempty"`

	// Origin describes where the session came from.
	Origin string `json:"origin,omitempty"`
}

// IsExpired reports whether either deadline has been reached at now.
// Both boundaries are inclusive: a session is expired at exactly the
// deadline instant.
func (s *Session) IsExpired(now time.Time) bool {
	if now.Sub(s.LastActivity) >= IdleTimeout {
		return true
	}
	return !now.Before(s.ExpiresAt)
}

// expiryReason names which deadline fired, for the audit trail.
func (s *Session) expiryReason(now time.Time) string {
	if !now.Before(s.ExpiresAt) {
		return "absolute timeout"
	}
	return "idle timeout"
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns all active sessions, persisted under one store key.
type Manager struct {
	st    store.Store
	log   *audit.Logger
	clock Clock
	mu    sync.Mutex

	// sweeping guards against overlapping sweep runs.
	sweeping bool
}

// Option configures the Manager.
type Option func(*Manager)

// WithClock replaces the time source. Used in tests.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a session manager over the given store. The audit
// logger may be nil, in which case expiry events are not recorded.
func NewManager(st store.Store, log *audit.Logger, opts ...Option) *Manager {
	m := &Manager{
		st:    st,
		log:   log,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session for the account. The absolute deadline is
// fixed here and never moves.
func (m *Manager) Create(accountID, device, origin string) (*Session, error) {
	token, err := crypto.RandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.clock().UTC()
	s := Session{
		Token:        token,
		AccountID:    accountID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(AbsoluteTimeout),
		Device:       device,
		Origin:       origin,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return nil, err
	}
	sessions[token] = s
	if err := m.save(sessions); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate returns the session for token if it is still live. An
// expired session is removed, logged, and reported as ErrSessionExpired.
func (m *Manager) Validate(token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return nil, err
	}

	s, ok := sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := m.clock().UTC()
	if s.IsExpired(now) {
		delete(sessions, token)
		if err := m.save(sessions); err != nil {
			return nil, err
		}
		m.recordExpiry(s, now)
		return nil, ErrSessionExpired
	}
	return &s, nil
}

// Touch refreshes the idle deadline. The absolute deadline is never
// extended. Touching an expired or unknown session fails the same way
// Validate does.
func (m *Manager) Touch(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return err
	}

	s, ok := sessions[token]
	if !ok {
		return ErrSessionNotFound
	}

	now := m.clock().UTC()
	if s.IsExpired(now) {
		delete(sessions, token)
		if err := m.save(sessions); err != nil {
			return err
		}
		m.recordExpiry(s, now)
		return ErrSessionExpired
	}

	s.LastActivity = now
	sessions[token] = s
	return m.save(sessions)
}

// Invalidate removes the session. Removing an unknown token is a no-op,
// so logout is idempotent.
func (m *Manager) Invalidate(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return err
	}

	if _, ok := sessions[token]; !ok {
		return nil
	}
	delete(sessions, token)
	return m.save(sessions)
}

// InvalidateAll removes every session belonging to the account and
// returns how many were removed.
func (m *Manager) InvalidateAll(accountID string) (int, error) {
	return m.invalidateWhere(func(s Session) bool {
		return s.AccountID == accountID
	})
}

// InvalidateOthers removes every session of the account except the one
// with keepToken. Used after a password change so the session that made
// the change survives.
func (m *Manager) InvalidateOthers(accountID, keepToken string) (int, error) {
	return m.invalidateWhere(func(s Session) bool {
		return s.AccountID == accountID && s.Token != keepToken
	})
}

func (m *Manager) invalidateWhere(match func(Session) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return 0, err
	}

	removed := 0
	for token, s := range sessions {
		if match(s) {
			delete(sessions, token)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, m.save(sessions)
}

// Active returns the live sessions for the account, without touching
// their deadlines.
func (m *Manager) Active(accountID string) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return nil, err
	}

	now := m.clock().UTC()
	live := make([]Session, 0)
	for _, s := range sessions {
		if s.AccountID == accountID && !s.IsExpired(now) {
			live = append(live, s)
		}
	}
	return live, nil
}

// Sweep removes every expired session and returns how many it removed.
// Overlapping sweeps are rejected with a zero count so a slow store
// cannot stack sweep runs.
func (m *Manager) Sweep() (int, error) {
	m.mu.Lock()
	if m.sweeping {
		m.mu.Unlock()
		return 0, nil
	}
	m.sweeping = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.sweeping = false
		m.mu.Unlock()
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.load()
	if err != nil {
		return 0, err
	}

	now := m.clock().UTC()
	expired := make([]Session, 0)
	for token, s := range sessions {
		if s.IsExpired(now) {
			delete(sessions, token)
			expired = append(expired, s)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := m.save(sessions); err != nil {
		return 0, err
	}
	for _, s := range expired {
		m.recordExpiry(s, now)
	}
	return len(expired), nil
}

// recordExpiry logs a session expiry. Audit failures do not fail the
// session operation that noticed the expiry.
func (m *Manager) recordExpiry(s Session, now time.Time) {
	if m.log == nil {
		return
	}
	_ = m.log.Record(audit.EventSessionExpired, s.AccountID, s.expiryReason(now))
}

// load reads the persisted session map. A missing key is an empty map.
// Caller must hold m.mu.
func (m *Manager) load() (map[string]Session, error) {
	data, err := m.st.Get(store.KeySessions)
	if err == store.ErrKeyNotFound {
		return make(map[string]Session), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	sessions := make(map[string]Session)
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return sessions, nil
}

func (m *Manager) save(sessions map[string]Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	if err := m.st.Set(store.KeySessions, data); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	return nil
}
