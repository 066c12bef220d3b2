// Copyright (c) 2026 Klokain. All rights reserved.

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/ctxutil"
	"github.com/klokain/osticket-api/internal/platform/middleware"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

// stubResolver records the credentials it is handed and answers with a fixed
// principal or error.
type stubResolver struct {
	seen      sec.Credentials
	principal *sec.Principal
	err       error
}

func (resolver *stubResolver) Resolve(_ context.Context, credentials sec.Credentials) (*sec.Principal, error) {
	resolver.seen = credentials
	if resolver.err != nil {
		return nil, resolver.err
	}
	return resolver.principal, nil
}

// okHandler replies 200 and exposes the request principal for assertions.
func okHandler(captured **sec.Principal) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if captured != nil {
			*captured = ctxutil.GetPrincipal(request.Context())
		}
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestResolve_ExtractsCredentials verifies every credential surface is handed
to the resolver unvalidated.
*/
func TestResolve_ExtractsCredentials(t *testing.T) {
	resolver := &stubResolver{principal: sec.Anonymous()}
	handler := middleware.Resolve(resolver)(okHandler(nil))

	request := httptest.NewRequest(http.MethodGet, "/api/v2/auth/check", nil)
	request.Header.Set("Authorization", "Bearer signed-token")
	request.Header.Set("X-API-Key", "machine-key")
	request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	request.Header.Set("User-Agent", "curl/8.0")
	request.AddCookie(&http.Cookie{Name: "OSTSESSID", Value: "legacy-session"})

	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "signed-token", resolver.seen.BearerToken)
	assert.Equal(t, "machine-key", resolver.seen.APIKey)
	assert.Equal(t, "legacy-session", resolver.seen.SessionID)
	assert.Equal(t, "203.0.113.9", resolver.seen.ClientIP)
	assert.Equal(t, "curl/8.0", resolver.seen.UserAgent)
}

/*
TestResolve_MalformedAuthorizationScheme verifies a non-Bearer Authorization
header is treated as absent rather than failing the request.
*/
func TestResolve_MalformedAuthorizationScheme(t *testing.T) {
	resolver := &stubResolver{principal: sec.Anonymous()}
	handler := middleware.Resolve(resolver)(okHandler(nil))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, resolver.seen.BearerToken)
}

/*
TestResolve_StoresPrincipal verifies the resolved principal reaches the
downstream handler's context.
*/
func TestResolve_StoresPrincipal(t *testing.T) {
	resolver := &stubResolver{principal: &sec.Principal{Type: sec.PrincipalStaff, ID: 7}}

	var captured *sec.Principal
	handler := middleware.Resolve(resolver)(okHandler(&captured))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, captured)
	assert.Equal(t, sec.PrincipalStaff, captured.Type)
	assert.Equal(t, 7, captured.ID)
}

/*
TestResolve_FailureIsTerminal verifies a resolution error short-circuits the
request with the resolver's status.
*/
func TestResolve_FailureIsTerminal(t *testing.T) {
	resolver := &stubResolver{err: apperr.Unauthorized("Invalid API key")}

	reached := false
	handler := middleware.Resolve(resolver)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		reached = true
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, reached)
	assert.Contains(t, recorder.Body.String(), "AUTHENTICATION_ERROR")
}

/*
TestGuards verifies the authorization guard matrix across principal types.
*/
func TestGuards(t *testing.T) {
	guards := map[string]func(http.Handler) http.Handler{
		"require_auth":    middleware.RequireAuth,
		"require_staff":   middleware.RequireStaff,
		"require_admin":   middleware.RequireAdmin,
		"require_api_key": middleware.RequireAPIKey,
	}

	principals := map[string]*sec.Principal{
		"anonymous": sec.Anonymous(),
		"staff":     {Type: sec.PrincipalStaff, ID: 1},
		"admin":     {Type: sec.PrincipalStaff, ID: 1, IsAdmin: true},
		"user":      {Type: sec.PrincipalUser, ID: 2},
		"api_key":   {Type: sec.PrincipalAPIKey, ID: 3},
	}

	tests := []struct {
		guard      string
		principal  string
		wantStatus int
	}{
		{"require_auth", "anonymous", http.StatusUnauthorized},
		{"require_auth", "staff", http.StatusOK},
		{"require_auth", "user", http.StatusOK},
		{"require_auth", "api_key", http.StatusOK},

		{"require_staff", "anonymous", http.StatusUnauthorized},
		{"require_staff", "user", http.StatusForbidden},
		{"require_staff", "api_key", http.StatusForbidden},
		{"require_staff", "staff", http.StatusOK},

		{"require_admin", "anonymous", http.StatusUnauthorized},
		{"require_admin", "staff", http.StatusForbidden},
		{"require_admin", "admin", http.StatusOK},

		{"require_api_key", "anonymous", http.StatusUnauthorized},
		{"require_api_key", "staff", http.StatusForbidden},
		{"require_api_key", "api_key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.guard+"_"+tt.principal, func(t *testing.T) {
			handler := guards[tt.guard](okHandler(nil))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := ctxutil.WithPrincipal(request.Context(), principals[tt.principal])

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request.WithContext(ctx))

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}
