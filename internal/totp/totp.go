// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// totp.go - TOTP secret generation and token validation.
package totp

import (
	"bytes"
	"fmt"
	"image/png"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// SecretSize is the TOTP shared secret size: 20 bytes / 160 bits.
	SecretSize = 20

	// Period is the TOTP time step in seconds (RFC 6238 default).
	Period = 30

	// Skew is the number of periods accepted on each side of now to
	// tolerate clock drift between credkeep and the authenticator.
	Skew = 1

	// Digits is the token length.
	Digits = 6

	// QRSize is the rendered QR image edge length in pixels.
	QRSize = 256
)

// =============================================================================
// SECRET GENERATION
// =============================================================================

// GenerateSecret returns a fresh base32-encoded 160-bit TOTP secret.
func GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		// Issuer and account are placeholders; the provisioning URI
		// handed to the authenticator is built separately so the
		// secret can be confirmed before it is bound to an account.
		Issuer:      "credkeep",
		AccountName: "pending",
		SecretSize:  SecretSize,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}
	return key.Secret(), nil
}

// BuildProvisioningURI builds the otpauth:// URI that authenticator apps
// consume. The URI carries the secret; it must never be logged.
func BuildProvisioningURI(secret, accountLabel, issuer string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(Period))
	v.Set("digits", strconv.Itoa(Digits))
	v.Set("algorithm", "SHA1")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + accountLabel,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// RenderQRCode renders a provisioning URI as a PNG image for terminal-less
// enrollment flows. Only otpauth:// URIs carrying a secret are accepted;
// url.Parse treats almost any string as a relative URL, so the scheme and
// secret are checked explicitly.
func RenderQRCode(uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "otpauth" {
		return nil, fmt.Errorf("invalid provisioning uri: not an otpauth uri")
	}

	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid provisioning uri: %w", err)
	}
	if key.Type() != "totp" || key.Secret() == "" {
		return nil, fmt.Errorf("invalid provisioning uri: not an otpauth totp uri")
	}

	img, err := key.Image(QRSize, QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// TOKEN VALIDATION
// =============================================================================

// ValidateToken reports whether token is a valid 6-digit TOTP code for
// secret at the given time, accepting the current period plus one period of
// drift in each direction. Anything that is not exactly six ASCII digits is
// rejected before any HMAC work.
func ValidateToken(token, secret string, now time.Time) bool {
	if !isSixDigits(token) {
		return false
	}

	ok, err := totp.ValidateCustom(token, secret, now, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}

// GenerateToken computes the valid code for secret at the given time.
// Used by enrollment confirmation and tests; never exposed to login flows.
func GenerateToken(secret string, now time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, now, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp token: %w", err)
	}
	return code, nil
}

// isSixDigits reports whether s is exactly six ASCII digits.
func isSixDigits(s string) bool {
	if len(s) != Digits {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
