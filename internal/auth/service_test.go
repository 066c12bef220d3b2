// Copyright (c) 2026 Klokain. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/klokain/osticket-api/internal/auth"
	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

// serviceFixture wires a Service over one active staff member and one
// registered end user, both with the password "hunter2".
type serviceFixture struct {
	service *auth.Service
	tokens  *mockTokenRepository
	staff   *mockStaffRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	staffMember := &auth.Staff{
		StaffID: 1, DeptID: 2, Username: "agent",
		FirstName: "Agent", LastName: "One",
		Passwd: string(hash), IsActive: true,
	}
	endUser := &auth.User{
		ID: 2, Name: "Jane Customer", Email: "jane@example.com",
		Status: 1, Passwd: string(hash),
	}

	staff := &mockStaffRepository{
		byUsername: map[string]*auth.Staff{"agent": staffMember},
		byID:       map[int]*auth.Staff{1: staffMember},
	}
	users := &mockUserRepository{
		byEmail: map[string]*auth.User{
			"jane@example.com":  endUser,
			"guest@example.com": {ID: 3, Name: "Guest", Email: "guest@example.com"},
		},
		byID: map[int]*auth.User{2: endUser},
	}
	tokens := &mockTokenRepository{}

	tokenService, err := sec.NewTokenService("service-test-secret", 30*time.Minute, time.Hour)
	require.NoError(t, err)

	return &serviceFixture{
		service: auth.NewService(staff, users, tokens, tokenService),
		tokens:  tokens,
		staff:   staff,
	}
}

/*
TestService_LoginStaff verifies password login issues a tracked token pair
sharing one session ID.
*/
func TestService_LoginStaff(t *testing.T) {
	fixture := newServiceFixture(t)

	pair, err := fixture.service.LoginStaff(context.Background(), "agent", "hunter2", auth.LoginMeta{
		IPAddress: "203.0.113.9",
		UserAgent: "curl/8.0",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, auth.TokenTypeBearer, pair.TokenType)
	assert.Equal(t, int((30 * time.Minute).Seconds()), pair.ExpiresIn)
	assert.Equal(t, sec.PrincipalStaff, pair.Principal.Type)

	// One tracking row per token, joined by a shared session ID
	require.Len(t, fixture.tokens.created, 2)
	assert.Equal(t, fixture.tokens.created[0].SessionID, fixture.tokens.created[1].SessionID)
	assert.NotEmpty(t, fixture.tokens.created[0].SessionID)
	assert.Equal(t, "203.0.113.9", fixture.tokens.created[0].IPAddress)

	// Only hashes are persisted
	for _, row := range fixture.tokens.created {
		assert.NotEqual(t, pair.AccessToken, row.TokenHash)
		assert.NotEqual(t, pair.RefreshToken, row.TokenHash)
		assert.Len(t, row.TokenHash, 64)
	}
}

/*
TestService_LoginStaff_EnumerationSafe verifies unknown usernames and wrong
passwords produce the identical client-facing error.
*/
func TestService_LoginStaff_EnumerationSafe(t *testing.T) {
	fixture := newServiceFixture(t)

	_, unknownErr := fixture.service.LoginStaff(context.Background(), "nobody", "hunter2", auth.LoginMeta{})
	_, wrongErr := fixture.service.LoginStaff(context.Background(), "agent", "wrong", auth.LoginMeta{})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	ae := apperr.As(unknownErr)
	require.NotNil(t, ae)
	assert.Equal(t, "AUTHENTICATION_ERROR", ae.Code)
}

/*
TestService_LoginUser verifies end-user login, and that guest rows without a
registered account credential cannot log in.
*/
func TestService_LoginUser(t *testing.T) {
	fixture := newServiceFixture(t)

	// 1. Registered user with matching password
	pair, err := fixture.service.LoginUser(context.Background(), "jane@example.com", "hunter2", auth.LoginMeta{})
	require.NoError(t, err)
	assert.Equal(t, sec.PrincipalUser, pair.Principal.Type)
	assert.Equal(t, 2, pair.Principal.ID)

	// 2. Guest row without a credential
	_, err = fixture.service.LoginUser(context.Background(), "guest@example.com", "hunter2", auth.LoginMeta{})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "AUTHENTICATION_ERROR", ae.Code)

	// 3. Unknown email
	_, err = fixture.service.LoginUser(context.Background(), "nobody@example.com", "hunter2", auth.LoginMeta{})
	require.Error(t, err)
}

/*
TestService_Refresh verifies rotation: a valid refresh token yields a new
pair and the presented token is revoked before reissue.
*/
func TestService_Refresh(t *testing.T) {
	fixture := newServiceFixture(t)

	pair, err := fixture.service.LoginStaff(context.Background(), "agent", "hunter2", auth.LoginMeta{})
	require.NoError(t, err)

	rotated, err := fixture.service.Refresh(context.Background(), pair.RefreshToken, auth.LoginMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// The old refresh token's tracking row was revoked
	assert.Contains(t, fixture.tokens.revokedHashes, sec.HashToken(pair.RefreshToken))

	// Replaying the rotated-out token fails
	_, err = fixture.service.Refresh(context.Background(), pair.RefreshToken, auth.LoginMeta{})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "AUTHENTICATION_ERROR", ae.Code)
}

/*
TestService_Refresh_RejectsAccessToken verifies an access token cannot be
exchanged at the refresh endpoint.
*/
func TestService_Refresh_RejectsAccessToken(t *testing.T) {
	fixture := newServiceFixture(t)

	pair, err := fixture.service.LoginStaff(context.Background(), "agent", "hunter2", auth.LoginMeta{})
	require.NoError(t, err)

	_, err = fixture.service.Refresh(context.Background(), pair.AccessToken, auth.LoginMeta{})

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "AUTHENTICATION_ERROR", ae.Code)
}

/*
TestService_Refresh_DeactivatedPrincipal verifies rotation fails when the
account vanished after the refresh token was issued.
*/
func TestService_Refresh_DeactivatedPrincipal(t *testing.T) {
	fixture := newServiceFixture(t)

	pair, err := fixture.service.LoginStaff(context.Background(), "agent", "hunter2", auth.LoginMeta{})
	require.NoError(t, err)

	delete(fixture.staff.byID, 1)

	_, err = fixture.service.Refresh(context.Background(), pair.RefreshToken, auth.LoginMeta{})

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Account no longer active", ae.Message)
}

/*
TestService_Logout verifies logout revokes the whole session and is
idempotent.
*/
func TestService_Logout(t *testing.T) {
	fixture := newServiceFixture(t)

	pair, err := fixture.service.LoginStaff(context.Background(), "agent", "hunter2", auth.LoginMeta{})
	require.NoError(t, err)
	sessionID := fixture.tokens.created[0].SessionID

	// 1. First logout revokes the access/refresh pair's session
	require.NoError(t, fixture.service.Logout(context.Background(), pair.AccessToken))
	assert.Contains(t, fixture.tokens.revokedSessions, sessionID)

	// 2. The session's refresh token is dead after logout
	_, err = fixture.service.Refresh(context.Background(), pair.RefreshToken, auth.LoginMeta{})
	require.Error(t, err)

	// 3. Repeating the logout succeeds silently
	require.NoError(t, fixture.service.Logout(context.Background(), pair.AccessToken))

	// 4. Logging out an unknown token also succeeds
	require.NoError(t, fixture.service.Logout(context.Background(), "never-issued"))
}

/*
TestService_PurgeExpiredTokens verifies cleanup removes only rows past their
expiry and leaves a live login usable.
*/
func TestService_PurgeExpiredTokens(t *testing.T) {
	fixture := newServiceFixture(t)

	pair, err := fixture.service.LoginStaff(context.Background(), "agent", "hunter2", auth.LoginMeta{})
	require.NoError(t, err)
	require.Len(t, fixture.tokens.created, 2)

	// 1. Age one planted row past its expiry
	fixture.tokens.created = append(fixture.tokens.created, &auth.IssuedToken{
		TokenHash: "stale-hash",
		TokenType: "access",
		ExpiresAt: time.Now().Add(-time.Minute),
		IsActive:  true,
	})

	require.NoError(t, fixture.service.PurgeExpiredTokens(context.Background()))

	// 2. The stale row is gone, the live pair survives
	require.Len(t, fixture.tokens.created, 2)
	for _, token := range fixture.tokens.created {
		assert.NotEqual(t, "stale-hash", token.TokenHash)
	}

	// 3. The surviving refresh token still rotates
	_, err = fixture.service.Refresh(context.Background(), pair.RefreshToken, auth.LoginMeta{})
	require.NoError(t, err)
}
