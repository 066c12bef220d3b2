// Copyright (c) 2026 Klokain. All rights reserved.

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/klokain/osticket-api/internal/platform/sec"
)

/*
TestVerifyPassword_Bcrypt verifies modern osTicket hashes ($2 prefix).
*/
func TestVerifyPassword_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	// 1. Matching password succeeds
	assert.True(t, sec.VerifyPassword("correct-horse", string(hash)))

	// 2. Wrong password fails
	assert.False(t, sec.VerifyPassword("wrong-horse", string(hash)))

	// 3. Empty password fails
	assert.False(t, sec.VerifyPassword("", string(hash)))
}

/*
TestVerifyPassword_LegacyMD5 verifies 32-hex legacy rows still authenticate.
*/
func TestVerifyPassword_LegacyMD5(t *testing.T) {
	// md5("password")
	const legacyHash = "5f4dcc3b5aa765d61d8327deb882cf99"

	tests := []struct {
		name     string
		password string
		stored   string
		want     bool
	}{
		{"matching_password", "password", legacyHash, true},
		{"wrong_password", "passw0rd", legacyHash, false},
		{"uppercase_digest_rejected", "password", strings.ToUpper(legacyHash), false},
		{"empty_password", "", legacyHash, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sec.VerifyPassword(tt.password, tt.stored))
		})
	}
}

/*
TestVerifyPassword_MalformedHash verifies that garbage in the credential
column fails closed instead of panicking.
*/
func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty_hash", ""},
		{"plain_text", "not-a-hash"},
		{"truncated_bcrypt", "$2a$10$short"},
		{"wrong_length_hex", "5f4dcc3b5aa765d6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, sec.VerifyPassword("anything", tt.stored))
		})
	}
}

/*
TestHashToken verifies the storage fingerprint is deterministic and never
echoes the token material.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("some-signed-token")

	// 1. SHA-256 hex output
	assert.Len(t, digest, 64)
	assert.NotContains(t, digest, "some-signed-token")

	// 2. Deterministic
	assert.Equal(t, digest, sec.HashToken("some-signed-token"))

	// 3. Distinct inputs yield distinct digests
	assert.NotEqual(t, digest, sec.HashToken("another-signed-token"))
}

/*
TestRedactCredential verifies log redaction keeps only a short prefix.
*/
func TestRedactCredential(t *testing.T) {
	// 1. Long secrets keep an 8-character prefix
	assert.Equal(t, "abcdefgh...", sec.RedactCredential("abcdefghijklmnop"))

	// 2. Short secrets are fully masked
	assert.Equal(t, "...", sec.RedactCredential("short"))
	assert.Equal(t, "...", sec.RedactCredential(""))
}
