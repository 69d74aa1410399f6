// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"errors"
	"strings"
	"time"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/store"
)

// ErrEntryNotFound covers both genuinely missing entries and entries
// owned by another account.
var ErrEntryNotFound = errors.New("entry not found")

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one stored credential. Visible in decrypted form only while
// the owning session holds the vault key.
type Entry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Username  string    `json:"username,omitempty"`
	Password  string    `json:"password"`
	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryInput is the caller-supplied part of an entry.
type EntryInput struct {
	Name     string
	URL      string
	Username string
	Password string
	Notes    string
	Tags     []string
}

func (in EntryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &auth.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if in.Password == "" {
		return &auth.ValidationError{Field: "password", Message: "must not be empty"}
	}
	return nil
}

// =============================================================================
// STORE
// =============================================================================

// Store orchestrates the per-account encrypted vault blobs.
type Store struct {
	st    store.Store
	eng   *auth.Engine
	log   *audit.Logger
	clock func() time.Time

	// iterations is the PBKDF2 cost used for export files, which derive
	// their own key so they are portable.
	iterations int
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(v *Store) {
		v.clock = clock
	}
}

// WithKeyIterations overrides the PBKDF2 cost for export files. Values
// below the floor are clamped.
func WithKeyIterations(iterations int) Option {
	return func(v *Store) {
		if iterations < crypto.PBKDF2MinIterations {
			iterations = crypto.PBKDF2MinIterations
		}
		v.iterations = iterations
	}
}

// NewStore creates the vault store. The audit logger may be nil.
func NewStore(st store.Store, eng *auth.Engine, log *audit.Logger, opts ...Option) *Store {
	v := &Store{
		st:         st,
		eng:        eng,
		log:        log,
		clock:      time.Now,
		iterations: crypto.PBKDF2Iterations,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// open validates the session and decrypts the caller's vault. A missing
// blob is an empty vault.
func (v *Store) open(token string) (*auth.Account, []byte, blobPayload, error) {
	account, err := v.eng.Account(token)
	if err != nil {
		return nil, nil, blobPayload{}, err
	}
	key, err := v.eng.VaultKey(token)
	if err != nil {
		return nil, nil, blobPayload{}, err
	}

	data, err := v.st.Get(store.VaultKey(account.ID))
	if err == store.ErrKeyNotFound {
		return account, key, blobPayload{Version: BlobVersion}, nil
	}
	if err != nil {
		return nil, nil, blobPayload{}, err
	}

	payload, err := decodeBlob(data, key)
	if err != nil {
		return nil, nil, blobPayload{}, err
	}
	return account, key, payload, nil
}

// write encrypts and persists the payload for the account.
func (v *Store) write(account *auth.Account, key []byte, payload blobPayload) error {
	payload.Version = BlobVersion
	payload.LastSyncedAt = v.clock().UTC()

	data, err := encodeBlob(payload, key, account.VaultSalt)
	if err != nil {
		return err
	}
	return v.st.Set(store.VaultKey(account.ID), data)
}

// =============================================================================
// CRUD
// =============================================================================

// CreateEntry adds a credential to the caller's vault.
func (v *Store) CreateEntry(token string, in EntryInput) (*Entry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	account, key, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}

	now := v.clock().UTC()
	entry := Entry{
		ID:        crypto.NewID(),
		AccountID: account.ID,
		Name:      strings.TrimSpace(in.Name),
		URL:       in.URL,
		Username:  in.Username,
		Password:  in.Password,
		Notes:     in.Notes,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload.Entries = append(payload.Entries, entry)
	if err := v.write(account, key, payload); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntry returns one entry by ID.
func (v *Store) GetEntry(token, id string) (*Entry, error) {
	_, _, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}

	for _, e := range payload.Entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// ListEntries returns every entry in the caller's vault.
func (v *Store) ListEntries(token string) ([]Entry, error) {
	_, _, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

// UpdateEntry replaces the caller-supplied fields of an entry.
func (v *Store) UpdateEntry(token, id string, in EntryInput) (*Entry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	account, key, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}

	for i, e := range payload.Entries {
		if e.ID != id {
			continue
		}
		e.Name = strings.TrimSpace(in.Name)
		e.URL = in.URL
		e.Username = in.Username
		e.Password = in.Password
		e.Notes = in.Notes
		e.Tags = in.Tags
		e.UpdatedAt = v.clock().UTC()
		payload.Entries[i] = e

		if err := v.write(account, key, payload); err != nil {
			return nil, err
		}
		return &e, nil
	}
	return nil, ErrEntryNotFound
}

// DeleteEntry removes an entry by ID.
func (v *Store) DeleteEntry(token, id string) error {
	account, key, payload, err := v.open(token)
	if err != nil {
		return err
	}

	for i, e := range payload.Entries {
		if e.ID != id {
			continue
		}
		payload.Entries = append(payload.Entries[:i], payload.Entries[i+1:]...)
		return v.write(account, key, payload)
	}
	return ErrEntryNotFound
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchEntries matches the query case-insensitively against display
// name and URL.
func (v *Store) SearchEntries(token, query string) ([]Entry, error) {
	_, _, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	matched := make([]Entry, 0)
	for _, e := range payload.Entries {
		if strings.Contains(strings.ToLower(e.Name), query) ||
			strings.Contains(strings.ToLower(e.URL), query) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// FindEntriesUsingPassword returns every entry whose stored credential
// equals the given plaintext. Reuse detection for the caller's own
// vault only.
func (v *Store) FindEntriesUsingPassword(token, password string) ([]Entry, error) {
	_, _, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}

	matched := make([]Entry, 0)
	for _, e := range payload.Entries {
		if e.Password == password {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// =============================================================================
// REKEY
// =============================================================================

// Rekey re-encrypts the account's blob under newKey. Satisfies
// auth.Rekeyer; called during password change while the engine holds
// its lock, so it reads and writes the store directly instead of going
// through a session.
func (v *Store) Rekey(accountID string, oldKey, newKey, newSalt []byte) error {
	data, err := v.st.Get(store.VaultKey(accountID))
	if err == store.ErrKeyNotFound {
		// Nothing to carry over.
		return nil
	}
	if err != nil {
		return err
	}

	payload, err := decodeBlob(data, oldKey)
	if err != nil {
		return err
	}

	encoded, err := encodeBlob(payload, newKey, newSalt)
	if err != nil {
		return err
	}
	return v.st.Set(store.VaultKey(accountID), encoded)
}
