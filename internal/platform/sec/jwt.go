// Copyright (c) 2026 Klokain. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hash verification, JWT
// signing, token fingerprinting) from the domain logic. It acts as an
// Infrastructure service injected into the Application layer, and it is the
// only package the middleware and the auth domain both depend on, which keeps
// the identity types cycle-free.
package sec

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kind discriminators embedded in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AuthClaims represents the payload embedded inside a signed token.
//
// # Why denormalized claims?
//
// By embedding the principal's identity and profile directly inside the JWT,
// the request-time resolver can reconstruct the caller context WITHOUT a
// database round trip for basic identity. The claims are stale until
// re-issuance; the resolver bounds that staleness by re-checking the
// principal's live existence/active status on every request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// TokenType discriminates access from refresh tokens so one can never be
	// presented in place of the other.
	TokenType string `json:"type"`

	UserType PrincipalType `json:"user_type"`
	UserID   int           `json:"user_id"`

	// Staff-only claims.
	Username string `json:"username,omitempty"`
	DeptID   int    `json:"dept_id,omitempty"`
	IsAdmin  bool   `json:"isadmin,omitempty"`

	// Shared profile claims (staff email, end-user email/name).
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// SessionID links the token back to the session it was issued under.
	SessionID string `json:"session_id,omitempty"`
}

// ClaimsForPrincipal builds the claim set issued for an authenticated
// principal. The subject is composed as "{type}:{id}".
func ClaimsForPrincipal(principal *Principal) *AuthClaims {
	claims := &AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: string(principal.Type) + ":" + strconv.Itoa(principal.ID),
		},
		UserType: principal.Type,
		UserID:   principal.ID,
	}

	switch principal.Type {
	case PrincipalStaff:
		claims.Username = principal.Username
		claims.Email = principal.Email
		claims.DeptID = principal.DeptID
		claims.IsAdmin = principal.IsAdmin
	case PrincipalUser:
		claims.Email = principal.Email
		claims.Name = principal.DisplayName
	}

	return claims
}

// Principal reconstructs the denormalized principal carried by the claims.
func (c *AuthClaims) Principal() *Principal {
	return &Principal{
		Type:        c.UserType,
		ID:          c.UserID,
		Username:    c.Username,
		Email:       c.Email,
		DisplayName: c.Name,
		DeptID:      c.DeptID,
		IsAdmin:     c.IsAdmin,
	}
}

// TokenService handles generation and verification of JWT tokens using a
// single process-wide shared secret (HS256).
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a new TokenService.
//
// The same secret signs access and refresh tokens; the embedded "type" claim
// keeps the two kinds distinct.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("sec: token signing secret must not be empty")
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTokenTTL returns the lifetime applied to issued access tokens.
func (service *TokenService) AccessTokenTTL() time.Duration { return service.accessTTL }

// RefreshTokenTTL returns the lifetime applied to issued refresh tokens.
func (service *TokenService) RefreshTokenTTL() time.Duration { return service.refreshTTL }

// IssueAccessToken signs a short-lived access token for the given claims.
// The "type" discriminator and absolute expiry are stamped here; everything
// else in the claims passes through unchanged.
func (service *TokenService) IssueAccessToken(claims *AuthClaims) (string, error) {
	return service.issue(claims, TokenTypeAccess, service.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the given claims.
func (service *TokenService) IssueRefreshToken(claims *AuthClaims) (string, error) {
	return service.issue(claims, TokenTypeRefresh, service.refreshTTL)
}

func (service *TokenService) issue(claims *AuthClaims, tokenType string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()

	stamped := *claims
	stamped.TokenType = tokenType
	stamped.IssuedAt = jwt.NewNumericDate(currentTime)
	stamped.ExpiresAt = jwt.NewNumericDate(currentTime.Add(timeToLive))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &stamped)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, structure, and expiry of a signed token.
//
// On success it returns the embedded claims unchanged. Any failure (signature
// mismatch, structural corruption, expiry) is a plain error; the orchestrator
// converts it into the authentication taxonomy exactly once, at the boundary.
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
