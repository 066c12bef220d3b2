// Copyright (c) 2026 Klokain. All rights reserved.

// Package request provides HTTP request parsing helpers used by all API handlers.
package request

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/ctxutil"
	"github.com/klokain/osticket-api/internal/platform/sec"
	"github.com/klokain/osticket-api/internal/platform/validate"
)

// maxBodyBytes caps request bodies to protect against memory exhaustion.
const maxBodyBytes = 1 << 20 // 1 MB

// DecodeJSON decodes the request body into destination, enforcing a size cap
// and rejecting unknown fields.
func DecodeJSON(writer http.ResponseWriter, httpRequest *http.Request, destination interface{}) error {
	httpRequest.Body = http.MaxBytesReader(writer, httpRequest.Body, maxBodyBytes)

	decoder := json.NewDecoder(httpRequest.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(destination); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// Param returns a URL path parameter by name (e.g. the provider slug in
// /oauth2/{provider}/login).
func Param(httpRequest *http.Request, name string) string {
	return chi.URLParam(httpRequest, name)
}

// Principal returns the resolved principal for the request, or the anonymous
// principal when resolution did not run.
func Principal(httpRequest *http.Request) *sec.Principal {
	if principal := ctxutil.GetPrincipal(httpRequest.Context()); principal != nil {
		return principal
	}
	return sec.Anonymous()
}

// RequiredPrincipal returns the authenticated principal or an authentication
// error when the request resolved as anonymous.
func RequiredPrincipal(httpRequest *http.Request) (*sec.Principal, error) {
	principal := Principal(httpRequest)
	if !principal.IsAuthenticated() {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return principal, nil
}
