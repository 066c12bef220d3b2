// Copyright (c) 2026 Klokain. All rights reserved.

package sec

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// # Password Verification

// VerifyPassword compares a plain-text password with a stored hash from the
// osTicket credential store.
//
// # Dispatch
//
// Two hash formats coexist in the store:
//
//   - Modern osTicket hashes start with "$2" and use bcrypt.
//   - Legacy rows are exactly 32 hex characters: a raw MD5 digest of the
//     plaintext. Read-only compatibility — new hashes are never written in
//     this format.
//   - Anything else falls through to bcrypt, which fails closed on a
//     malformed hash.
//
// VerifyPassword never returns an error. Any verification failure, including
// a hashing-library error, is reported as false so the result carries no
// hash-format oracle for the caller.
func VerifyPassword(plainTextPassword, storedHash string) bool {
	if strings.HasPrefix(storedHash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plainTextPassword)) == nil
	}

	if len(storedHash) == 32 {
		digest := md5.Sum([]byte(plainTextPassword))
		// Byte-exact, case-sensitive comparison against the stored hex digest.
		return hex.EncodeToString(digest[:]) == storedHash
	}

	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plainTextPassword)) == nil
}

// # Token Fingerprinting

// HashToken computes the one-way storage digest of a signed token.
//
// The backing store only ever holds this fingerprint, so a database leak
// never yields a usable bearer token; revocation and audit lookups compare
// digests instead.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
