// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/credkeep/internal/crypto"
)

// BlobVersion is the current vault blob format. Any structural change
// to the payload bumps it.
const BlobVersion = 1

var (
	// ErrUnsupportedVersion means the blob was written by a newer
	// credkeep. Refuse rather than guess.
	ErrUnsupportedVersion = errors.New("vault blob version not supported")

	// ErrCorruptBlob means the stored record is not decodable at all,
	// before decryption is even attempted.
	ErrCorruptBlob = errors.New("vault blob is corrupt")
)

// storedBlob is the at-rest form: the encrypted payload plus the IV and
// the salt the key was derived with, all base64.
type storedBlob struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// blobPayload is the plaintext form inside the ciphertext.
type blobPayload struct {
	Version      int       `json:"version"`
	Entries      []Entry   `json:"entries"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

// encodeBlob encrypts the payload under key and wraps it into the
// stored record.
func encodeBlob(payload blobPayload, key, salt []byte) ([]byte, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault payload: %w", err)
	}

	ciphertext, iv, err := crypto.Encrypt(plaintext, key)
	crypto.ZeroBytes(plaintext)
	if err != nil {
		return nil, err
	}

	blob := storedBlob{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}
	return json.Marshal(blob)
}

// decodeBlob unwraps and decrypts a stored record. Unknown future
// payload versions are rejected after decryption.
func decodeBlob(data []byte, key []byte) (blobPayload, error) {
	var blob storedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return blobPayload{}, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return blobPayload{}, fmt.Errorf("%w: bad ciphertext encoding", ErrCorruptBlob)
	}
	iv, err := base64.StdEncoding.DecodeString(blob.IV)
	if err != nil {
		return blobPayload{}, fmt.Errorf("%w: bad iv encoding", ErrCorruptBlob)
	}

	plaintext, err := crypto.Decrypt(ciphertext, iv, key)
	if err != nil {
		return blobPayload{}, err
	}
	defer crypto.ZeroBytes(plaintext)

	var payload blobPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return blobPayload{}, fmt.Errorf("%w: bad payload", ErrCorruptBlob)
	}
	if payload.Version > BlobVersion {
		return blobPayload{}, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, payload.Version)
	}
	return payload, nil
}
