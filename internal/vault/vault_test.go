// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/crypto"
	"github.com/jeranaias/credkeep/internal/session"
	"github.com/jeranaias/credkeep/internal/store"
)

const testPassword = "Str0ng!Passw0rd123"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestVault wires a full engine plus vault over one memory store and
// returns a logged-in session token.
func newTestVault(t *testing.T) (*Store, *auth.Engine, string, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	logger := audit.NewLogger(st, audit.WithClock(clock.Now))
	sessions := session.NewManager(st, logger, session.WithClock(clock.Now))

	eng := auth.NewEngine(st, sessions, logger,
		auth.WithClock(clock.Now),
		auth.WithKeyIterations(crypto.PBKDF2MinIterations),
		auth.WithLoginRate(rate.Inf, 1),
	)

	v := NewStore(st, eng, logger,
		WithClock(clock.Now),
		WithKeyIterations(crypto.PBKDF2MinIterations),
	)
	eng.SetRekeyer(v)

	if _, err := eng.Register("alice", testPassword); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	s, err := eng.Login("alice", testPassword, "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return v, eng, s.Token, clock
}

func testInput(name string) EntryInput {
	return EntryInput{
		Name:     name,
		URL:      "https://" + name + ".example.com",
		Username: "alice",
		Password: "site-" + name + "-pw",
	}
}

// TestCreateAndGet tests the basic round trip through encryption.
func TestCreateAndGet(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	created, err := v.CreateEntry(token, testInput("github"))
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Created entry has no ID")
	}

	got, err := v.GetEntry(token, created.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Name != "github" || got.Password != "site-github-pw" {
		t.Errorf("Round trip mismatch: %+v", got)
	}

	if _, err := v.GetEntry(token, "no-such-id"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Unknown ID: got %v, want ErrEntryNotFound", err)
	}
}

// TestEntryValidation tests the input checks.
func TestEntryValidation(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	var verr *auth.ValidationError
	if _, err := v.CreateEntry(token, EntryInput{Password: "x"}); !errors.As(err, &verr) {
		t.Errorf("Empty name: got %v, want ValidationError", err)
	}
	if _, err := v.CreateEntry(token, EntryInput{Name: "x"}); !errors.As(err, &verr) {
		t.Errorf("Empty password: got %v, want ValidationError", err)
	}
}

// TestUpdateAndDelete tests mutation and removal.
func TestUpdateAndDelete(t *testing.T) {
	v, _, token, clock := newTestVault(t)

	created, err := v.CreateEntry(token, testInput("github"))
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	clock.Advance(time.Minute)
	in := testInput("github")
	in.Password = "rotated-pw"
	updated, err := v.UpdateEntry(token, created.ID, in)
	if err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}
	if updated.Password != "rotated-pw" {
		t.Errorf("Password not updated: %q", updated.Password)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("UpdatedAt not advanced")
	}

	if err := v.DeleteEntry(token, created.ID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if err := v.DeleteEntry(token, created.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Second delete: got %v, want ErrEntryNotFound", err)
	}

	if _, err := v.UpdateEntry(token, "no-such-id", in); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Update of unknown ID: got %v, want ErrEntryNotFound", err)
	}
}

// TestCrossAccountIsolation tests that another account's entries read
// as not found, and that each vault is encrypted under its own key.
func TestCrossAccountIsolation(t *testing.T) {
	v, eng, aliceToken, _ := newTestVault(t)

	created, err := v.CreateEntry(aliceToken, testInput("github"))
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	if _, err := eng.Register("bob", testPassword); err != nil {
		t.Fatalf("Register bob failed: %v", err)
	}
	bob, err := eng.Login("bob", testPassword, "")
	if err != nil {
		t.Fatalf("Login bob failed: %v", err)
	}

	if _, err := v.GetEntry(bob.Token, created.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Cross-account read: got %v, want ErrEntryNotFound", err)
	}

	entries, err := v.ListEntries(bob.Token)
	if err != nil {
		t.Fatalf("ListEntries for bob failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Bob sees %d entries, want 0", len(entries))
	}
}

// TestExpiredSessionRejected tests that vault access dies with the
// session.
func TestExpiredSessionRejected(t *testing.T) {
	v, _, token, clock := newTestVault(t)

	if _, err := v.CreateEntry(token, testInput("github")); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	clock.Advance(session.IdleTimeout)

	var serr *auth.SessionExpiredError
	if _, err := v.ListEntries(token); !errors.As(err, &serr) {
		t.Errorf("Expired session: got %v, want SessionExpiredError", err)
	}
}

// TestSearchEntries tests case-insensitive name and URL matching.
func TestSearchEntries(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	v.CreateEntry(token, testInput("GitHub"))
	v.CreateEntry(token, testInput("gitlab"))
	v.CreateEntry(token, testInput("bank"))

	matched, err := v.SearchEntries(token, "GIT")
	if err != nil {
		t.Fatalf("SearchEntries failed: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("Search for GIT matched %d entries, want 2", len(matched))
	}

	matched, err = v.SearchEntries(token, "bank.example")
	if err != nil {
		t.Fatalf("SearchEntries failed: %v", err)
	}
	if len(matched) != 1 {
		t.Errorf("URL search matched %d entries, want 1", len(matched))
	}
}

// TestFindEntriesUsingPassword tests reuse detection.
func TestFindEntriesUsingPassword(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	shared := testInput("a")
	shared.Password = "reused-pw"
	v.CreateEntry(token, shared)
	shared.Name = "b"
	v.CreateEntry(token, shared)
	v.CreateEntry(token, testInput("c"))

	matched, err := v.FindEntriesUsingPassword(token, "reused-pw")
	if err != nil {
		t.Fatalf("FindEntriesUsingPassword failed: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("Reuse lookup matched %d entries, want 2", len(matched))
	}
}

// TestRekeyOnPasswordChange tests that the vault survives a password
// change intact.
func TestRekeyOnPasswordChange(t *testing.T) {
	v, eng, token, _ := newTestVault(t)

	created, err := v.CreateEntry(token, testInput("github"))
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	const newPassword = "N3w!Passw0rd456xy"
	if err := eng.ChangePassword(token, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// Same session reads the re-encrypted vault.
	got, err := v.GetEntry(token, created.ID)
	if err != nil {
		t.Fatalf("GetEntry after rekey failed: %v", err)
	}
	if got.Password != "site-github-pw" {
		t.Errorf("Entry corrupted by rekey: %+v", got)
	}

	// A fresh login under the new password reads it too.
	s, err := eng.Login("alice", newPassword, "")
	if err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
	if _, err := v.GetEntry(s.Token, created.ID); err != nil {
		t.Errorf("GetEntry in new session failed: %v", err)
	}
}

// TestBlobTamperRejected tests that a flipped ciphertext bit fails
// closed.
func TestBlobTamperRejected(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	logger := audit.NewLogger(st)
	sessions := session.NewManager(st, logger, session.WithClock(clock.Now))
	eng := auth.NewEngine(st, sessions, logger,
		auth.WithClock(clock.Now),
		auth.WithKeyIterations(crypto.PBKDF2MinIterations),
		auth.WithLoginRate(rate.Inf, 1),
	)
	v := NewStore(st, eng, logger, WithClock(clock.Now))

	account, err := eng.Register("alice", testPassword)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	s, err := eng.Login("alice", testPassword, "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := v.CreateEntry(s.Token, testInput("github")); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	data, err := st.Get(store.VaultKey(account.ID))
	if err != nil {
		t.Fatalf("Get blob failed: %v", err)
	}
	// Flip one bit inside the ciphertext field specifically, so the
	// tamper lands on authenticated data.
	var blob map[string]string
	if err := json.Unmarshal(data, &blob); err != nil {
		t.Fatalf("Unmarshal blob failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob["ciphertext"])
	if err != nil {
		t.Fatalf("Decode ciphertext failed: %v", err)
	}
	raw[len(raw)/2] ^= 0x01
	blob["ciphertext"] = base64.StdEncoding.EncodeToString(raw)
	tampered, err := json.Marshal(blob)
	if err != nil {
		t.Fatalf("Marshal tampered blob failed: %v", err)
	}
	if err := st.Set(store.VaultKey(account.ID), tampered); err != nil {
		t.Fatalf("Set tampered blob failed: %v", err)
	}

	if _, err := v.ListEntries(s.Token); err == nil {
		t.Error("Tampered blob decrypted without error")
	}
}
