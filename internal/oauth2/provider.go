// Copyright (c) 2026 Klokain. All rights reserved.

/*
Package oauth2 implements the OAuth2/OIDC provider integrations for federated
login.

Each supported identity provider (Keycloak, Microsoft Entra ID) is an
implementation of the [Provider] interface: it builds the authorization
redirect, exchanges the callback code for tokens, and fetches the user's
profile, normalized into a provider-agnostic [UserProfile].

Providers only verify identity. Whether the asserted subject maps to an
internal account — and with which roles — is decided entirely by the auth
domain.
*/
package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sort"

	xoauth2 "golang.org/x/oauth2"

	"github.com/klokain/osticket-api/internal/platform/constants"
)

// # Provider Contract

// UserProfile is the provider-agnostic identity a provider asserts after a
// successful authorization round trip.
type UserProfile struct {
	// Subject is the provider's stable user identifier. Mapping is keyed on
	// it exclusively; emails and usernames are mutable hints.
	Subject string `json:"subject"`

	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`

	// Raw is the provider's unmodified user-info JSON, kept as the profile
	// snapshot on the identity mapping.
	Raw string `json:"-"`
}

// Provider is one configured external identity provider.
type Provider interface {
	// Name returns the registry slug ("keycloak", "microsoft").
	Name() string

	// AuthorizationURL builds the provider's authorization redirect for the
	// given state parameter.
	AuthorizationURL(state string) string

	// ExchangeCode redeems a callback authorization code for an access token.
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchUserInfo retrieves and normalizes the profile behind an access token.
	FetchUserInfo(ctx context.Context, accessToken string) (*UserProfile, error)
}

// # State Generation

// stateEntropyBytes is the random length of a state nonce before encoding.
const stateEntropyBytes = 32

// GenerateState returns a URL-safe random nonce for the OAuth2 state parameter.
func GenerateState() (string, error) {
	buffer := make([]byte, stateEntropyBytes)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("oauth2_state_generation_failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// # Provider Registry

// Registry holds the providers enabled by configuration. It is built once at
// startup and read-only afterwards.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, provider := range providers {
		registry.providers[provider.Name()] = provider
	}
	return registry
}

// Get returns the provider registered under name, or false when the name is
// unknown or the provider is not enabled.
func (registry *Registry) Get(name string) (Provider, bool) {
	provider, found := registry.providers[name]
	return provider, found
}

// Names returns the enabled provider slugs in stable order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// # Shared Transport

// boundedContext attaches an HTTP client with a hard per-request deadline to
// the context used for provider round trips. Authorization codes are
// single-use, so a timed-out exchange fails the login instead of retrying.
func boundedContext(ctx context.Context) context.Context {
	client := &http.Client{Timeout: constants.IdPRequestTimeout}
	return context.WithValue(ctx, xoauth2.HTTPClient, client)
}

// fetchJSON performs one authenticated GET against a provider endpoint and
// returns the raw response body.
func fetchJSON(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth2_userinfo_request_failed: %w", err)
	}
	httpRequest.Header.Set("Authorization", "Bearer "+accessToken)
	httpRequest.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: constants.IdPRequestTimeout}
	response, err := client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("oauth2_userinfo_fetch_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth2_userinfo_status_%d", response.StatusCode)
	}

	return readBody(response)
}

// maxProfileBytes caps user-info response bodies.
const maxProfileBytes = 1 << 20

func readBody(response *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(response.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("oauth2_userinfo_read_failed: %w", err)
	}
	return body, nil
}
