// Copyright (c) 2026 Klokain. All rights reserved.

package oauth2

import (
	"context"
	"encoding/json"
	"fmt"

	xoauth2 "golang.org/x/oauth2"
)

// ProviderMicrosoft is the registry slug for Microsoft Entra ID tenants.
const ProviderMicrosoft = "microsoft"

// graphMeURL is the Microsoft Graph profile endpoint.
const graphMeURL = "https://graph.microsoft.com/v1.0/me"

// MicrosoftProvider implements [Provider] against a Microsoft Entra ID tenant
// using the v2.0 endpoints and Microsoft Graph for profile retrieval.
type MicrosoftProvider struct {
	config      xoauth2.Config
	userinfoURL string
}

// NewMicrosoftProvider configures a provider for one tenant.
func NewMicrosoftProvider(tenantID, clientID, clientSecret, redirectURL string) *MicrosoftProvider {
	base := "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0"

	return &MicrosoftProvider{
		config: xoauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile", "User.Read"},
			Endpoint: xoauth2.Endpoint{
				AuthURL:  base + "/authorize",
				TokenURL: base + "/token",
			},
		},
		userinfoURL: graphMeURL,
	}
}

// Name returns the registry slug.
func (provider *MicrosoftProvider) Name() string { return ProviderMicrosoft }

// AuthorizationURL builds the tenant's authorization redirect.
func (provider *MicrosoftProvider) AuthorizationURL(state string) string {
	return provider.config.AuthCodeURL(state)
}

// ExchangeCode redeems a callback code at the tenant's token endpoint.
func (provider *MicrosoftProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := provider.config.Exchange(boundedContext(ctx), code)
	if err != nil {
		return "", fmt.Errorf("microsoft_code_exchange_failed: %w", err)
	}
	return token.AccessToken, nil
}

// graphProfile is the subset of the Graph /me resource we consume.
type graphProfile struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// FetchUserInfo retrieves the caller's Graph profile and normalizes its
// Microsoft-specific field names.
//
// Graph leaves "mail" empty for accounts without a provisioned mailbox, so
// the userPrincipalName serves as the email fallback.
func (provider *MicrosoftProvider) FetchUserInfo(ctx context.Context, accessToken string) (*UserProfile, error) {
	body, err := fetchJSON(ctx, provider.userinfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	var profile graphProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("microsoft_userinfo_decode_failed: %w", err)
	}

	email := profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}

	return &UserProfile{
		Subject:  profile.ID,
		Email:    email,
		Username: profile.UserPrincipalName,
		Name:     profile.DisplayName,
		Raw:      string(body),
	}, nil
}
