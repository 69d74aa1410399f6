// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/credkeep/internal/audit"
	"github.com/jeranaias/credkeep/internal/auth"
	"github.com/jeranaias/credkeep/internal/crypto"
)

// ExportVersion is the current export container format.
const ExportVersion = 1

// exportBlob is the outer container: everything needed to decrypt the
// data on another machine given the password.
type exportBlob struct {
	Version     int       `json:"version"`
	IV          string    `json:"iv"`
	Salt        string    `json:"salt"`
	Data        string    `json:"data"`
	EncryptedAt time.Time `json:"encryptedAt"`
}

// exportPayload is the plaintext inside the container.
type exportPayload struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exportedAt"`
	UserID     string                `json:"userId"`
	Username   string                `json:"username"`
	Sites      []Entry               `json:"sites"`
	History    []audit.SecurityEvent `json:"history"`
	ItemCount  int                   `json:"itemCount"`
}

// Export packages the caller's vault, re-verifying the password and
// encrypting under a key derived from it with a fresh salt, so the file
// is portable to another machine.
func (v *Store) Export(token, password string) ([]byte, error) {
	if err := v.eng.CheckPassword(token, password); err != nil {
		return nil, err
	}

	account, _, payload, err := v.open(token)
	if err != nil {
		return nil, err
	}

	history := []audit.SecurityEvent{}
	if v.log != nil {
		history, err = v.log.Events(audit.Filter{AccountID: account.ID})
		if err != nil {
			return nil, err
		}
	}

	now := v.clock().UTC()
	plain, err := json.Marshal(exportPayload{
		Version:    ExportVersion,
		ExportedAt: now,
		UserID:     account.ID,
		Username:   account.Username,
		Sites:      payload.Entries,
		History:    history,
		ItemCount:  len(payload.Entries),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode export payload: %w", err)
	}
	defer crypto.ZeroBytes(plain)

	salt, err := crypto.RandomSalt()
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveKeyN(password, salt, v.iterations)
	defer crypto.ZeroBytes(key)

	ciphertext, iv, err := crypto.Encrypt(plain, key)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(exportBlob{
		Version:     ExportVersion,
		IV:          base64.StdEncoding.EncodeToString(iv),
		Salt:        base64.StdEncoding.EncodeToString(salt),
		Data:        base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if v.log != nil {
		_ = v.log.Record(audit.EventVaultExported, account.ID,
			fmt.Sprintf("%d entries", len(payload.Entries)))
	}
	return out, nil
}

// Import merges an exported file into the caller's vault. Entries with
// matching IDs are replaced, the rest are appended. Returns how many
// entries were imported.
func (v *Store) Import(token, password string, data []byte) (int, error) {
	var blob exportBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return 0, &auth.ValidationError{Field: "file", Message: "not a credkeep export"}
	}
	if blob.IV == "" || blob.Salt == "" || blob.Data == "" {
		return 0, &auth.ValidationError{Field: "file", Message: "export is missing required fields"}
	}
	// Version gate comes before any decryption attempt.
	if blob.Version > ExportVersion {
		return 0, fmt.Errorf("%w: export version %d", ErrUnsupportedVersion, blob.Version)
	}

	iv, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil {
		return 0, &auth.ValidationError{Field: "file", Message: "bad iv encoding"}
	}
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return 0, &auth.ValidationError{Field: "file", Message: "bad salt encoding"}
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return 0, &auth.ValidationError{Field: "file", Message: "bad data encoding"}
	}

	key := crypto.DeriveKeyN(password, salt, v.iterations)
	defer crypto.ZeroBytes(key)

	plain, err := crypto.Decrypt(ciphertext, iv, key)
	if err != nil {
		return 0, err
	}
	defer crypto.ZeroBytes(plain)

	var payload exportPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return 0, &auth.ValidationError{Field: "file", Message: "bad export payload"}
	}
	if payload.Version > ExportVersion {
		return 0, fmt.Errorf("%w: payload version %d", ErrUnsupportedVersion, payload.Version)
	}

	account, vaultKey, current, err := v.open(token)
	if err != nil {
		return 0, err
	}

	byID := make(map[string]int, len(current.Entries))
	for i, e := range current.Entries {
		byID[e.ID] = i
	}

	for _, site := range payload.Sites {
		site.AccountID = account.ID
		if i, ok := byID[site.ID]; ok {
			current.Entries[i] = site
		} else {
			current.Entries = append(current.Entries, site)
		}
	}

	if err := v.write(account, vaultKey, current); err != nil {
		return 0, err
	}

	if v.log != nil {
		_ = v.log.Record(audit.EventVaultImported, account.ID,
			fmt.Sprintf("%d entries", len(payload.Sites)))
	}
	return len(payload.Sites), nil
}
