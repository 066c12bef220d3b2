// Copyright (c) 2026 Klokain. All rights reserved.

package oauth2_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klokain/osticket-api/internal/oauth2"
)

/*
TestKeycloakProvider_AuthorizationURL verifies the redirect targets the
realm's auth endpoint and carries the client and state parameters.
*/
func TestKeycloakProvider_AuthorizationURL(t *testing.T) {
	provider := oauth2.NewKeycloakProvider(
		"https://sso.example.com/",
		"helpdesk",
		"osticket-api",
		"secret",
		"https://api.example.com/callback",
	)

	authURL := provider.AuthorizationURL("state-nonce-123")

	assert.Contains(t, authURL, "https://sso.example.com/realms/helpdesk/protocol/openid-connect/auth")
	assert.Contains(t, authURL, "client_id=osticket-api")
	assert.Contains(t, authURL, "state=state-nonce-123")
	assert.Contains(t, authURL, "scope=openid+email+profile")
}

/*
TestKeycloakProvider_FetchUserInfo verifies userinfo claims are normalized
into the provider-agnostic profile.
*/
func TestKeycloakProvider_FetchUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// The realm's userinfo endpoint requires the bearer access token
		assert.Equal(t, "/realms/helpdesk/protocol/openid-connect/userinfo", request.URL.Path)
		assert.Equal(t, "Bearer idp-access-token", request.Header.Get("Authorization"))

		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"sub":"subject-123","email":"agent@example.com","preferred_username":"agent","name":"Agent One"}`))
	}))
	defer server.Close()

	provider := oauth2.NewKeycloakProvider(server.URL, "helpdesk", "osticket-api", "secret", "https://api.example.com/callback")

	profile, err := provider.FetchUserInfo(context.Background(), "idp-access-token")

	require.NoError(t, err)
	assert.Equal(t, "subject-123", profile.Subject)
	assert.Equal(t, "agent@example.com", profile.Email)
	assert.Equal(t, "agent", profile.Username)
	assert.Equal(t, "Agent One", profile.Name)
	assert.Contains(t, profile.Raw, `"sub":"subject-123"`)
}

/*
TestKeycloakProvider_FetchUserInfo_UpstreamError verifies a non-200 userinfo
response surfaces as an error.
*/
func TestKeycloakProvider_FetchUserInfo_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := oauth2.NewKeycloakProvider(server.URL, "helpdesk", "osticket-api", "secret", "https://api.example.com/callback")

	_, err := provider.FetchUserInfo(context.Background(), "stale-token")
	assert.Error(t, err)
}
