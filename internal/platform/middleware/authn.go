// Copyright (c) 2026 Klokain. All rights reserved.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/constants"
	"github.com/klokain/osticket-api/internal/platform/ctxutil"
	"github.com/klokain/osticket-api/internal/platform/respond"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

// # Authentication Resolution

// Resolver turns the raw credentials of a request into a single Principal.
// Implemented by the auth domain service.
type Resolver interface {
	Resolve(ctx context.Context, credentials sec.Credentials) (*sec.Principal, error)
}

// Resolve runs authentication resolution once per request and stores the
// resulting principal in the context.
//
// A request that presents a credential commits to it: if the highest-priority
// credential present is invalid the request fails here, even when an
// unauthenticated request to the same endpoint would have succeeded. A request
// with no credentials at all proceeds as the anonymous principal.
func Resolve(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Extract every credential the request presents
			credentials := extractCredentials(request)

			// 2. Resolve them to exactly one principal
			principal, err := resolver.Resolve(request.Context(), credentials)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// 3. Make the principal available to guards and handlers
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// extractCredentials gathers authentication material without validating any of it.
func extractCredentials(request *http.Request) sec.Credentials {
	credentials := sec.Credentials{
		APIKey:    request.Header.Get(constants.HeaderAPIKey),
		ClientIP:  ClientIP(request),
		UserAgent: request.UserAgent(),
	}

	// Bearer token from the Authorization header. A malformed scheme is
	// treated as absent so lower-priority credentials still apply.
	if authHeader := request.Header.Get(constants.HeaderAuthorization); authHeader != "" {
		if token, found := strings.CutPrefix(authHeader, "Bearer "); found && token != "" {
			credentials.BearerToken = token
		}
	}

	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
		credentials.SessionID = cookie.Value
	}

	return credentials
}

// # Authorization Guards

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())
		if !principal.IsAuthenticated() {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireStaff rejects requests whose principal is not a staff member.
// End users and API keys get 403; anonymous requests get 401.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())

		if !principal.IsAuthenticated() {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}

		if !principal.IsStaff() {
			respond.Error(writer, request, apperr.Forbidden("Staff access required"))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// RequireAdmin rejects requests whose principal is not an admin staff member.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())

		if !principal.IsAuthenticated() {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}

		if !principal.IsAdminStaff() {
			respond.Error(writer, request, apperr.Forbidden("Administrator access required"))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// RequireAPIKey restricts an endpoint to machine callers holding an API key.
func RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())

		if !principal.IsAuthenticated() {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}

		if principal.Type != sec.PrincipalAPIKey {
			respond.Error(writer, request, apperr.Forbidden("API key access required"))
			return
		}

		next.ServeHTTP(writer, request)
	})
}
