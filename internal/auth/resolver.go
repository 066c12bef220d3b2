// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/ctxutil"
	"github.com/klokain/osticket-api/internal/platform/dberr"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

// # Authentication Resolution

// Resolver turns the credentials presented by a request into exactly one
// principal.
//
// Precedence is fixed: bearer token, then API key, then session cookie. The
// first credential present decides the request — if it is invalid the request
// fails even when a lower-priority credential would have succeeded, so a
// caller can never silently fall back onto a weaker identity.
type Resolver struct {
	tokenService      *sec.TokenService
	staffRepository   StaffRepository
	userRepository    UserRepository
	apiKeyRepository  APIKeyRepository
	sessionRepository SessionRepository
}

// NewResolver constructs a [Resolver] with its data dependencies.
func NewResolver(
	tokenService *sec.TokenService,
	staffRepo StaffRepository,
	userRepo UserRepository,
	apiKeyRepo APIKeyRepository,
	sessionRepo SessionRepository,
) *Resolver {
	return &Resolver{
		tokenService:      tokenService,
		staffRepository:   staffRepo,
		userRepository:    userRepo,
		apiKeyRepository:  apiKeyRepo,
		sessionRepository: sessionRepo,
	}
}

/*
Resolve establishes the authoritative identity for one request.

Description: Applies the bearer > API key > session cookie precedence and
returns the anonymous principal when no credential is presented at all.

Parameters:
  - context: context.Context
  - credentials: sec.Credentials (raw, unvalidated request material)

Returns:
  - *sec.Principal: The single resolved identity
  - error: Unauthorized, Forbidden, or storage failures
*/
func (resolver *Resolver) Resolve(context context.Context, credentials sec.Credentials) (*sec.Principal, error) {

	// 1. Bearer token wins over everything else
	if credentials.BearerToken != "" {
		return resolver.resolveBearer(context, credentials.BearerToken)
	}

	// 2. API key, with its IP restriction evaluated against the client address
	if credentials.APIKey != "" {
		return resolver.resolveAPIKey(context, credentials.APIKey, credentials.ClientIP)
	}

	// 3. Legacy session cookie
	if credentials.SessionID != "" {
		return resolver.resolveSession(context, credentials.SessionID)
	}

	// 4. No credentials: the request proceeds anonymously
	return sec.Anonymous(), nil
}

// resolveBearer validates a JWT access token and re-reads the principal from
// the store, so revoked role changes and deactivations take effect
// immediately rather than at token expiry.
func (resolver *Resolver) resolveBearer(context context.Context, token string) (*sec.Principal, error) {
	logger := ctxutil.GetLogger(context)

	claims, err := resolver.tokenService.Verify(token)
	if err != nil {
		logger.WarnContext(context, "bearer_token_rejected",
			slog.String("token", sec.RedactCredential(token)),
			slog.String("reason", err.Error()),
		)
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	// A refresh token is only exchangeable, never a request credential
	if claims.TokenType != sec.TokenTypeAccess {
		logger.WarnContext(context, "bearer_token_rejected",
			slog.String("token", sec.RedactCredential(token)),
			slog.String("reason", "wrong token type"),
		)
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	principal, err := lookupPrincipal(context, resolver.staffRepository, resolver.userRepository, string(claims.UserType), claims.UserID)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Account no longer active")
		}
		return nil, err
	}

	return principal, nil
}

// resolveAPIKey validates a static API key. An unknown key is an
// authentication failure; a known key presented from a disallowed address is
// an authorization failure, and the two are reported distinctly.
func (resolver *Resolver) resolveAPIKey(context context.Context, rawKey, clientIP string) (*sec.Principal, error) {
	logger := ctxutil.GetLogger(context)

	key, err := resolver.apiKeyRepository.FindActiveByKey(context, rawKey)
	if err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(context, "api_key_rejected",
				slog.String("api_key", sec.RedactCredential(rawKey)),
				slog.String("ip", clientIP),
				slog.String("reason", "unknown or inactive key"),
			)
			return nil, apperr.Unauthorized("Invalid API key")
		}
		return nil, err
	}

	if !IPAllowed(key.IPAddr, clientIP) {
		logger.WarnContext(context, "api_key_rejected",
			slog.Int("api_key_id", key.ID),
			slog.String("ip", clientIP),
			slog.String("reason", "ip not on allow-list"),
		)
		return nil, apperr.Forbidden("API key not authorized for this IP address")
	}

	return key.Principal(), nil
}

// resolveSession validates a legacy OSTSESSID cookie against the staff
// session table first, then the end-user session table.
func (resolver *Resolver) resolveSession(context context.Context, sessionID string) (*sec.Principal, error) {
	logger := ctxutil.GetLogger(context)

	if record, err := resolver.sessionRepository.FindStaffSession(context, sessionID); err == nil {
		return resolver.sessionPrincipal(context, UserTypeStaff, record)
	} else if !dberr.IsNotFound(err) {
		return nil, err
	}

	if record, err := resolver.sessionRepository.FindUserSession(context, sessionID); err == nil {
		return resolver.sessionPrincipal(context, UserTypeUser, record)
	} else if !dberr.IsNotFound(err) {
		return nil, err
	}

	logger.WarnContext(context, "session_rejected",
		slog.String("session_id", sec.RedactCredential(sessionID)),
		slog.String("reason", "unknown or expired session"),
	)
	return nil, apperr.Unauthorized("Invalid or expired session")
}

// sessionPrincipal turns a session row into a live principal. Expiry is
// checked on the row itself, never left to the repository's query filter.
// Rows whose subject is not a well-formed identifier fail resolution.
func (resolver *Resolver) sessionPrincipal(context context.Context, userType string, record *SessionRecord) (*sec.Principal, error) {
	logger := ctxutil.GetLogger(context)

	if !record.SessionExpire.After(time.Now()) {
		logger.WarnContext(context, "session_rejected",
			slog.String("session_id", sec.RedactCredential(record.SessionID)),
			slog.String("reason", "session expired"),
		)
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	subjectID, err := strconv.Atoi(record.SubjectID)
	if err != nil || subjectID <= 0 {
		logger.WarnContext(context, "session_rejected",
			slog.String("session_id", sec.RedactCredential(record.SessionID)),
			slog.String("reason", "malformed subject id"),
		)
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	principal, err := lookupPrincipal(context, resolver.staffRepository, resolver.userRepository, userType, subjectID)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid or expired session")
		}
		return nil, err
	}

	return principal, nil
}

// lookupPrincipal re-reads a staff or user principal from the store. Role and
// status always come from this read, never from a presented credential. It is
// shared by bearer resolution, session resolution, refresh rotation, and
// external identity mapping.
func lookupPrincipal(context context.Context, staffRepo StaffRepository, userRepo UserRepository, userType string, subjectID int) (*sec.Principal, error) {
	switch userType {
	case UserTypeStaff:
		staff, err := staffRepo.FindActiveByID(context, subjectID)
		if err != nil {
			return nil, err
		}
		return staff.Principal(), nil

	case UserTypeUser:
		user, err := userRepo.FindByID(context, subjectID)
		if err != nil {
			return nil, err
		}
		if user.Status == UserStatusLocked {
			return nil, dberr.ErrNotFound
		}
		return user.Principal(), nil

	default:
		return nil, dberr.ErrNotFound
	}
}
