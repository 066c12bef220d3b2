// Copyright (c) 2026 Klokain. All rights reserved.

package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	xoauth2 "golang.org/x/oauth2"
)

// ProviderKeycloak is the registry slug for Keycloak realms.
const ProviderKeycloak = "keycloak"

// KeycloakProvider implements [Provider] against a Keycloak realm's
// openid-connect endpoints.
type KeycloakProvider struct {
	config      xoauth2.Config
	userinfoURL string
}

// NewKeycloakProvider configures a provider for one realm.
//
// Endpoint layout follows Keycloak's fixed scheme:
// {server}/realms/{realm}/protocol/openid-connect/{auth,token,userinfo}.
func NewKeycloakProvider(serverURL, realm, clientID, clientSecret, redirectURL string) *KeycloakProvider {
	base := strings.TrimRight(serverURL, "/") + "/realms/" + realm + "/protocol/openid-connect"

	return &KeycloakProvider{
		config: xoauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: xoauth2.Endpoint{
				AuthURL:  base + "/auth",
				TokenURL: base + "/token",
			},
		},
		userinfoURL: base + "/userinfo",
	}
}

// Name returns the registry slug.
func (provider *KeycloakProvider) Name() string { return ProviderKeycloak }

// AuthorizationURL builds the realm's authorization redirect.
func (provider *KeycloakProvider) AuthorizationURL(state string) string {
	return provider.config.AuthCodeURL(state)
}

// ExchangeCode redeems a callback code at the realm's token endpoint.
func (provider *KeycloakProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := provider.config.Exchange(boundedContext(ctx), code)
	if err != nil {
		return "", fmt.Errorf("keycloak_code_exchange_failed: %w", err)
	}
	return token.AccessToken, nil
}

// keycloakProfile is the subset of OIDC userinfo claims we consume.
type keycloakProfile struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
}

// FetchUserInfo retrieves the realm's userinfo claims for an access token.
func (provider *KeycloakProvider) FetchUserInfo(ctx context.Context, accessToken string) (*UserProfile, error) {
	body, err := fetchJSON(ctx, provider.userinfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	var claims keycloakProfile
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, fmt.Errorf("keycloak_userinfo_decode_failed: %w", err)
	}

	return &UserProfile{
		Subject:  claims.Sub,
		Email:    claims.Email,
		Username: claims.PreferredUsername,
		Name:     claims.Name,
		Raw:      string(body),
	}, nil
}
