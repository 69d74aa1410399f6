// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jeranaias/credkeep/internal/auth"
)

// TestExportImportRoundTrip tests portability of an export across
// accounts.
func TestExportImportRoundTrip(t *testing.T) {
	v, eng, token, _ := newTestVault(t)

	v.CreateEntry(token, testInput("github"))
	v.CreateEntry(token, testInput("bank"))

	out, err := v.Export(token, testPassword)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var blob exportBlob
	if err := json.Unmarshal(out, &blob); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if blob.Version != ExportVersion || blob.IV == "" || blob.Salt == "" || blob.Data == "" {
		t.Fatalf("Export container incomplete: %+v", blob)
	}

	// Import into a different account.
	if _, err := eng.Register("bob", testPassword); err != nil {
		t.Fatalf("Register bob failed: %v", err)
	}
	bob, err := eng.Login("bob", testPassword, "")
	if err != nil {
		t.Fatalf("Login bob failed: %v", err)
	}

	n, err := v.Import(bob.Token, testPassword, out)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Imported %d entries, want 2", n)
	}

	entries, err := v.ListEntries(bob.Token)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Bob has %d entries after import, want 2", len(entries))
	}
	for _, e := range entries {
		if e.AccountID == "" || e.AccountID == "alice" {
			t.Errorf("Imported entry not reowned: %+v", e)
		}
	}
}

// TestExportRequiresPassword tests the explicit-consent check.
func TestExportRequiresPassword(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	if _, err := v.Export(token, "Wr0ng!Passw0rd123"); !errors.Is(err, &auth.AuthError{Code: auth.CodeInvalidCredentials}) {
		t.Errorf("Export with wrong password: got %v, want INVALID_CREDENTIALS", err)
	}
}

// TestImportWrongPassword tests that a bad passphrase fails closed.
func TestImportWrongPassword(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	v.CreateEntry(token, testInput("github"))
	out, err := v.Export(token, testPassword)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if _, err := v.Import(token, "Wr0ng!Passw0rd123", out); err == nil {
		t.Error("Import with wrong password succeeded")
	}
}

// TestImportRejectsFutureVersion tests the version gate before
// decryption.
func TestImportRejectsFutureVersion(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	out, err := v.Export(token, testPassword)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var blob exportBlob
	if err := json.Unmarshal(out, &blob); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	blob.Version = ExportVersion + 1
	future, err := json.Marshal(blob)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if _, err := v.Import(token, testPassword, future); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Future version: got %v, want ErrUnsupportedVersion", err)
	}
}

// TestImportRejectsMalformed tests the field-presence validation.
func TestImportRejectsMalformed(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	var verr *auth.ValidationError
	if _, err := v.Import(token, testPassword, []byte("not json")); !errors.As(err, &verr) {
		t.Errorf("Garbage input: got %v, want ValidationError", err)
	}
	if _, err := v.Import(token, testPassword, []byte(`{"version":1}`)); !errors.As(err, &verr) {
		t.Errorf("Missing fields: got %v, want ValidationError", err)
	}
}

// TestImportMergesByID tests replace-on-collision semantics.
func TestImportMergesByID(t *testing.T) {
	v, _, token, _ := newTestVault(t)

	created, err := v.CreateEntry(token, testInput("github"))
	if err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}

	out, err := v.Export(token, testPassword)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Rotate the password locally, then import the old export.
	in := testInput("github")
	in.Password = "rotated-pw"
	if _, err := v.UpdateEntry(token, created.ID, in); err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}

	if _, err := v.Import(token, testPassword, out); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	entries, err := v.ListEntries(token)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Got %d entries after merge, want 1", len(entries))
	}
	if entries[0].Password != "site-github-pw" {
		t.Errorf("Import did not replace colliding entry: %q", entries[0].Password)
	}
}
