// Copyright (c) 2026 Klokain. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klokain/osticket-api/internal/platform/sec"
)

const testSecret = "unit-test-signing-secret"

func newTestTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(testSecret, 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return service
}

/*
TestTokenService_RoundTrip verifies that issued access tokens verify back to
the original claims.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	principal := &sec.Principal{
		Type:     sec.PrincipalStaff,
		ID:       42,
		Username: "jdoe",
		Email:    "jdoe@example.com",
		DeptID:   3,
		IsAdmin:  true,
	}

	claims := sec.ClaimsForPrincipal(principal)
	claims.SessionID = "session-abc"

	token, err := service.IssueAccessToken(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verified, err := service.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, sec.TokenTypeAccess, verified.TokenType)
	assert.Equal(t, sec.PrincipalStaff, verified.UserType)
	assert.Equal(t, 42, verified.UserID)
	assert.Equal(t, "jdoe", verified.Username)
	assert.Equal(t, 3, verified.DeptID)
	assert.True(t, verified.IsAdmin)
	assert.Equal(t, "session-abc", verified.SessionID)
	assert.Equal(t, "staff:42", verified.Subject)
}

/*
TestTokenService_TokenTypeDiscriminator verifies that access and refresh
tokens carry distinct discriminators.
*/
func TestTokenService_TokenTypeDiscriminator(t *testing.T) {
	service := newTestTokenService(t)
	claims := sec.ClaimsForPrincipal(&sec.Principal{Type: sec.PrincipalUser, ID: 7})

	accessToken, err := service.IssueAccessToken(claims)
	require.NoError(t, err)
	refreshToken, err := service.IssueRefreshToken(claims)
	require.NoError(t, err)

	accessClaims, err := service.Verify(accessToken)
	require.NoError(t, err)
	refreshClaims, err := service.Verify(refreshToken)
	require.NoError(t, err)

	assert.Equal(t, sec.TokenTypeAccess, accessClaims.TokenType)
	assert.Equal(t, sec.TokenTypeRefresh, refreshClaims.TokenType)
}

/*
TestTokenService_TamperedToken verifies that any byte-level modification of
the token invalidates its signature.
*/
func TestTokenService_TamperedToken(t *testing.T) {
	service := newTestTokenService(t)
	claims := sec.ClaimsForPrincipal(&sec.Principal{Type: sec.PrincipalStaff, ID: 1})

	token, err := service.IssueAccessToken(claims)
	require.NoError(t, err)

	// Flip the final signature character
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = service.Verify(string(tampered))
	assert.Error(t, err)
}

/*
TestTokenService_WrongSecret verifies tokens signed under a different secret
are rejected.
*/
func TestTokenService_WrongSecret(t *testing.T) {
	issuer := newTestTokenService(t)
	verifier, err := sec.NewTokenService("a-different-secret", 30*time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(sec.ClaimsForPrincipal(&sec.Principal{Type: sec.PrincipalStaff, ID: 1}))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

/*
TestTokenService_ExpiredToken verifies that an expired token fails
verification.
*/
func TestTokenService_ExpiredToken(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, -time.Minute, -time.Minute)
	require.NoError(t, err)

	token, err := service.IssueAccessToken(sec.ClaimsForPrincipal(&sec.Principal{Type: sec.PrincipalUser, ID: 9}))
	require.NoError(t, err)

	_, err = service.Verify(token)
	assert.Error(t, err)
}

/*
TestTokenService_EmptySecret verifies construction fails without a signing
secret.
*/
func TestTokenService_EmptySecret(t *testing.T) {
	_, err := sec.NewTokenService("", time.Minute, time.Minute)
	assert.Error(t, err)
}

/*
TestClaimsForPrincipal verifies per-variant claim population.
*/
func TestClaimsForPrincipal(t *testing.T) {
	// 1. Staff principals carry username, dept, and admin flag
	staffClaims := sec.ClaimsForPrincipal(&sec.Principal{
		Type:     sec.PrincipalStaff,
		ID:       5,
		Username: "agent",
		Email:    "agent@example.com",
		DeptID:   2,
		IsAdmin:  true,
	})
	assert.Equal(t, "staff:5", staffClaims.Subject)
	assert.Equal(t, "agent", staffClaims.Username)
	assert.Equal(t, 2, staffClaims.DeptID)
	assert.True(t, staffClaims.IsAdmin)
	assert.Empty(t, staffClaims.Name)

	// 2. End-user principals carry email and display name only
	userClaims := sec.ClaimsForPrincipal(&sec.Principal{
		Type:        sec.PrincipalUser,
		ID:          11,
		DisplayName: "Jane Customer",
		Email:       "jane@example.com",
	})
	assert.Equal(t, "user:11", userClaims.Subject)
	assert.Equal(t, "Jane Customer", userClaims.Name)
	assert.Empty(t, userClaims.Username)
	assert.False(t, userClaims.IsAdmin)
}
