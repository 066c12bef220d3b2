// Copyright (c) 2026 Klokain. All rights reserved.

/*
Package auth provides the HTTP delivery layer for authentication.

The handler is a thin mediation layer between the web and the domain
services: it decodes and validates payloads, delegates to [Service], [Mapper],
and the OAuth2 provider registry, and shapes transport responses. All
authorization is enforced by the platform middleware guards.
*/
package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/klokain/osticket-api/internal/oauth2"
	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/constants"
	"github.com/klokain/osticket-api/internal/platform/middleware"
	requestutil "github.com/klokain/osticket-api/internal/platform/request"
	"github.com/klokain/osticket-api/internal/platform/respond"
	"github.com/klokain/osticket-api/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
type Handler struct {
	authService     *Service
	mapper          *Mapper
	stateRepository StateRepository
	providers       *oauth2.Registry
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, mapper *Mapper, stateRepo StateRepository, providers *oauth2.Registry) *Handler {
	return &Handler{
		authService:     service,
		mapper:          mapper,
		stateRepository: stateRepo,
		providers:       providers,
	}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /staff/login    : Staff username/password login.
//   - POST /user/login     : End-user email/password login.
//   - POST /token/refresh  : Refresh token rotation.
//   - GET  /oauth2/...     : Federated login round trip.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/staff/login", handler.staffLogin)
	router.Post("/user/login", handler.userLogin)
	router.Post("/token/refresh", handler.refreshToken)
	router.Get("/check", handler.check)
	router.Get("/providers", handler.listProviders)
	router.Get("/oauth2/{provider}/login", handler.oauth2Login)
	router.Get("/oauth2/{provider}/callback", handler.oauth2Callback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Get("/userinfo", handler.userinfo)
		r.Get("/me", handler.me)
	})

	// Role-gate demonstration endpoints
	router.With(middleware.RequireStaff).Get("/staff-only", handler.staffOnly)
	router.With(middleware.RequireAdmin).Get("/admin-only", handler.adminOnly)

	return router
}

// # Request Payloads

type staffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse shapes a token pair for transport.
func tokenResponse(pair *TokenPair) map[string]any {
	return map[string]any{
		FieldAccessToken:  pair.AccessToken,
		FieldRefreshToken: pair.RefreshToken,
		FieldTokenType:    pair.TokenType,
		FieldExpiresIn:    pair.ExpiresIn,
		FieldUserType:     string(pair.Principal.Type),
	}
}

// loginMeta captures the audit metadata for this request.
func loginMeta(request *http.Request) LoginMeta {
	return LoginMeta{
		IPAddress: middleware.ClientIP(request),
		UserAgent: request.UserAgent(),
	}
}

// # Password Logins

/*
StaffLogin authenticates a helpdesk agent.

POST /api/v2/auth/staff/login

Request:
  - Body: staffLoginRequest (Username, Password)

Response:
  - 200: Token pair for the staff principal
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 401: ErrUnauthorized: Invalid credentials
*/
func (handler *Handler) staffLogin(writer http.ResponseWriter, request *http.Request) {
	var input staffLoginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.LoginStaff(request.Context(), input.Username, input.Password, loginMeta(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokenResponse(pair))
}

/*
UserLogin authenticates an end user.

POST /api/v2/auth/user/login

Request:
  - Body: userLoginRequest (Email, Password)

Response:
  - 200: Token pair for the user principal
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 401: ErrUnauthorized: Invalid credentials
*/
func (handler *Handler) userLogin(writer http.ResponseWriter, request *http.Request) {
	var input userLoginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.LoginUser(request.Context(), input.Email, input.Password, loginMeta(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokenResponse(pair))
}

// # Token Lifecycle

/*
RefreshToken rotates a refresh token into a fresh pair.

POST /api/v2/auth/token/refresh

Request:
  - Body: refreshTokenRequest (RefreshToken)

Response:
  - 200: Rotated token pair
  - 401: ErrUnauthorized: Invalid, expired, or already-rotated token
*/
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) {
	var input refreshTokenRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken, loginMeta(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokenResponse(pair))
}

/*
Logout revokes the presented bearer token and its paired refresh token.

POST /api/v2/auth/logout

Response:
  - 200: Success message (idempotent — repeated logout also succeeds)
  - 401: ErrUnauthorized: No authenticated principal
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	if token != "" {
		if err := handler.authService.Logout(request.Context(), token); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Logged out successfully",
	})
}

// bearerToken extracts the raw bearer token from the Authorization header.
func bearerToken(request *http.Request) string {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if token, found := strings.CutPrefix(authHeader, "Bearer "); found {
		return token
	}
	return ""
}

// # Identity Introspection

/*
Userinfo returns the resolved identity of the authenticated caller.

GET /api/v2/auth/userinfo

Response:
  - 200: Principal profile
  - 401: ErrUnauthorized: No authenticated principal
*/
func (handler *Handler) userinfo(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, principal)
}

/*
Me returns the caller's identity in the same shape as Userinfo.

GET /api/v2/auth/me

Kept as a separate route because existing integrations call both paths.
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	handler.userinfo(writer, request)
}

/*
Check reports whether the request resolved to an authenticated principal.

GET /api/v2/auth/check

Description: Never fails for anonymous callers — a request with no
credentials reports authenticated=false with 200. A request with an invalid
credential never reaches this handler; resolution already rejected it.

Response:
  - 200: Authentication status
*/
func (handler *Handler) check(writer http.ResponseWriter, request *http.Request) {
	principal := requestutil.Principal(request)

	payload := map[string]any{
		"authenticated": principal.IsAuthenticated(),
	}
	if principal.IsAuthenticated() {
		payload[FieldUserType] = string(principal.Type)
		payload["user_id"] = principal.ID
	}

	respond.OK(writer, payload)
}

// # Role Gates

func (handler *Handler) staffOnly(writer http.ResponseWriter, request *http.Request) {
	principal := requestutil.Principal(request)
	respond.OK(writer, map[string]any{
		FieldMessage:  "Staff access granted",
		FieldUserType: string(principal.Type),
		"user_id":     principal.ID,
	})
}

func (handler *Handler) adminOnly(writer http.ResponseWriter, request *http.Request) {
	principal := requestutil.Principal(request)
	respond.OK(writer, map[string]any{
		FieldMessage: "Administrator access granted",
		"user_id":    principal.ID,
	})
}

// # Federated Login

/*
ListProviders returns the enabled authentication provider catalog.

GET /api/v2/auth/providers

Description: Lists each enabled OAuth2 provider with its login entry point,
plus the native osTicket password endpoints, so a frontend can render its
login options without hardcoding paths.

Response:
  - 200: Provider catalog keyed by slug
*/
func (handler *Handler) listProviders(writer http.ResponseWriter, request *http.Request) {
	catalog := map[string]any{}
	for _, name := range handler.providers.Names() {
		catalog[name] = map[string]string{
			"name":      name,
			"login_url": "/api/v2/auth/oauth2/" + name + "/login",
		}
	}

	// Native password authentication is always available
	catalog["osticket"] = map[string]string{
		"name":            "osticket",
		"staff_login_url": "/api/v2/auth/staff/login",
		"user_login_url":  "/api/v2/auth/user/login",
	}

	respond.OK(writer, map[string]any{
		"providers":           catalog,
		"native_auth_enabled": true,
	})
}

/*
OAuth2Login starts the authorization round trip for one provider.

GET /api/v2/auth/oauth2/{provider}/login?return_url=...

Description: Generates a single-use state nonce, stores it with a TTL, and
redirects the browser to the provider's authorization endpoint. An optional
return_url rides inside the state parameter and is echoed back after the
callback completes.

Response:
  - 302: Redirect to the provider
  - 404: ErrNotFound: Unknown or disabled provider
*/
func (handler *Handler) oauth2Login(writer http.ResponseWriter, request *http.Request) {
	providerName := requestutil.Param(request, FieldProvider)

	provider, found := handler.providers.Get(providerName)
	if !found {
		respond.Error(writer, request, apperr.NotFound("OAuth2 provider"))
		return
	}

	nonce, err := oauth2.GenerateState()
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	// The return URL rides inside the state parameter itself
	state := nonce
	if returnURL := request.URL.Query().Get(FieldReturnURL); returnURL != "" {
		state = nonce + StateSeparator + returnURL
	}

	if err := handler.stateRepository.Set(request.Context(), state, constants.OAuth2StateTTL); err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, provider.AuthorizationURL(state), http.StatusFound)
}

/*
OAuth2Callback completes the authorization round trip.

GET /api/v2/auth/oauth2/{provider}/callback?code=...&state=...

Description: Validates the single-use state, exchanges the code, fetches and
normalizes the provider profile, maps it to an internal principal, and issues
a token pair. Provider round-trip failures surface as 502, never as 401 —
an unreachable IdP says nothing about the caller's identity.

Response:
  - 200: Token pair plus the echoed return URL
  - 400: ErrValidation: Provider error or missing code/state
  - 401: ErrUnauthorized: Replayed state, unmapped identity
  - 404: ErrNotFound: Unknown or disabled provider
  - 502: FederationUnavailable: Exchange or profile fetch failed
*/
func (handler *Handler) oauth2Callback(writer http.ResponseWriter, request *http.Request) {
	providerName := requestutil.Param(request, FieldProvider)

	provider, found := handler.providers.Get(providerName)
	if !found {
		respond.Error(writer, request, apperr.NotFound("OAuth2 provider"))
		return
	}

	query := request.URL.Query()

	// The provider reports user-visible failures via the error parameter
	if providerError := query.Get("error"); providerError != "" {
		respond.Error(writer, request, apperr.ValidationError("Provider returned error: "+providerError))
		return
	}

	state := query.Get("state")
	if state == "" {
		respond.Error(writer, request, apperr.ValidationError("Missing state parameter"))
		return
	}

	// The code must be validated before the state: consuming the state
	// burns the single-use nonce.
	code := query.Get("code")
	if code == "" {
		respond.Error(writer, request, apperr.ValidationError("Missing authorization code"))
		return
	}

	consumed, err := handler.stateRepository.Consume(request.Context(), state)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if !consumed {
		respond.Error(writer, request, apperr.Unauthorized("Invalid or expired state parameter"))
		return
	}

	accessToken, err := provider.ExchangeCode(request.Context(), code)
	if err != nil {
		respond.Error(writer, request, apperr.FederationUnavailable("Identity provider code exchange failed", err))
		return
	}

	profile, err := provider.FetchUserInfo(request.Context(), accessToken)
	if err != nil {
		respond.Error(writer, request, apperr.FederationUnavailable("Identity provider profile retrieval failed", err))
		return
	}

	principal, err := handler.mapper.ResolveExternal(request.Context(), providerName, *profile)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.IssueForPrincipal(request.Context(), principal, loginMeta(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := tokenResponse(pair)
	if _, returnURL, found := strings.Cut(state, StateSeparator); found && returnURL != "" {
		payload[FieldReturnURL] = returnURL
	}

	respond.OK(writer, payload)
}
