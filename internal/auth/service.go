// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/ctxutil"
	"github.com/klokain/osticket-api/internal/platform/dberr"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

// # Login & Token Issuance

// Service implements the password login, token refresh, and logout use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to credential
// verification, issuance, or rotation logic must be reviewed by the security
// team.
type Service struct {
	staffRepository StaffRepository
	userRepository  UserRepository
	tokenRepository TokenRepository
	tokenService    *sec.TokenService
}

// NewService constructs the auth [Service] with its dependencies.
func NewService(
	staffRepo StaffRepository,
	userRepo UserRepository,
	tokenRepo TokenRepository,
	tokenService *sec.TokenService,
) *Service {
	return &Service{
		staffRepository: staffRepo,
		userRepository:  userRepo,
		tokenRepository: tokenRepo,
		tokenService:    tokenService,
	}
}

// LoginMeta carries request audit metadata recorded alongside issued tokens.
type LoginMeta struct {
	IPAddress string
	UserAgent string
}

// TokenPair represents a successfully issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int // Access token lifetime in seconds.
	Principal    *sec.Principal
}

/*
LoginStaff authenticates a helpdesk agent with username and password.

Description: Verifies the stored hash (bcrypt or legacy MD5) and issues a
tracked token pair. Unknown usernames and wrong passwords produce the same
client-facing error to prevent account enumeration.

Parameters:
  - context: context.Context
  - username: string
  - password: string
  - meta: LoginMeta

Returns:
  - *TokenPair: Transport-ready token pair
  - error: Unauthorized or storage failures
*/
func (service *Service) LoginStaff(context context.Context, username, password string, meta LoginMeta) (*TokenPair, error) {
	logger := ctxutil.GetLogger(context)

	staff, err := service.staffRepository.FindActiveByUsername(context, username)
	if err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(context, "staff_login_failed", slog.String("username", username))
			return nil, apperr.Unauthorized("Invalid username or password")
		}
		return nil, err
	}

	if !sec.VerifyPassword(password, staff.Passwd) {
		logger.WarnContext(context, "staff_login_failed", slog.String("username", username))
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	logger.InfoContext(context, "staff_login_succeeded",
		slog.Int("staff_id", staff.StaffID),
		slog.String("username", staff.Username),
	)
	return service.IssueForPrincipal(context, staff.Principal(), meta)
}

/*
LoginUser authenticates an end user with email and password.

Description: Looks the user up by any registered email address, requires a
registered account with a usable credential, and checks the account is not
locked before verifying the password.

Parameters:
  - context: context.Context
  - email: string
  - password: string
  - meta: LoginMeta

Returns:
  - *TokenPair: Transport-ready token pair
  - error: Unauthorized or storage failures
*/
func (service *Service) LoginUser(context context.Context, email, password string, meta LoginMeta) (*TokenPair, error) {
	logger := ctxutil.GetLogger(context)

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(context, "user_login_failed", slog.String("email", email))
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	// Guests have an ost_user row but no registered account to log into
	if user.Passwd == "" || user.Status == UserStatusLocked {
		logger.WarnContext(context, "user_login_failed", slog.String("email", email))
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !sec.VerifyPassword(password, user.Passwd) {
		logger.WarnContext(context, "user_login_failed", slog.String("email", email))
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	logger.InfoContext(context, "user_login_succeeded",
		slog.Int("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return service.IssueForPrincipal(context, user.Principal(), meta)
}

/*
IssueForPrincipal signs and persists a fresh token pair for a principal.

Description: Stamps both tokens with a shared session ID so they can be
revoked together, and stores one hashed tracking row per token. Used by the
password logins and by federated login after identity mapping.

Parameters:
  - context: context.Context
  - principal: *sec.Principal
  - meta: LoginMeta

Returns:
  - *TokenPair: Transport-ready token pair
  - error: Signing or persistence failures
*/
func (service *Service) IssueForPrincipal(context context.Context, principal *sec.Principal, meta LoginMeta) (*TokenPair, error) {

	// One session ID ties the pair together for joint revocation
	sessionID := uuid.New().String()

	claims := sec.ClaimsForPrincipal(principal)
	claims.SessionID = sessionID

	accessToken, err := service.tokenService.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenService.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	currentTime := time.Now()
	rows := []*IssuedToken{
		{
			UserType:  string(principal.Type),
			UserID:    principal.ID,
			TokenType: sec.TokenTypeAccess,
			TokenHash: sec.HashToken(accessToken),
			ExpiresAt: currentTime.Add(service.tokenService.AccessTokenTTL()),
		},
		{
			UserType:  string(principal.Type),
			UserID:    principal.ID,
			TokenType: sec.TokenTypeRefresh,
			TokenHash: sec.HashToken(refreshToken),
			ExpiresAt: currentTime.Add(service.tokenService.RefreshTokenTTL()),
		},
	}

	for _, row := range rows {
		row.SessionID = sessionID
		row.IPAddress = meta.IPAddress
		row.UserAgent = meta.UserAgent
		if err := service.tokenRepository.Create(context, row); err != nil {
			return nil, fmt.Errorf("auth_service_token_tracking_failed: %w", err)
		}
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int(service.tokenService.AccessTokenTTL().Seconds()),
		Principal:    principal,
	}, nil
}

/*
Refresh exchanges a valid refresh token for a rotated token pair.

Description: The presented token must carry the refresh discriminator, its
tracking row must still be active, and the principal must still exist and be
active. The old refresh token is revoked before the new pair is issued so it
can never be replayed.

Parameters:
  - context: context.Context
  - refreshToken: string
  - meta: LoginMeta

Returns:
  - *TokenPair: Rotated token pair
  - error: Unauthorized or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string, meta LoginMeta) (*TokenPair, error) {
	logger := ctxutil.GetLogger(context)

	claims, err := service.tokenService.Verify(refreshToken)
	if err != nil || claims.TokenType != sec.TokenTypeRefresh {
		logger.WarnContext(context, "token_refresh_rejected",
			slog.String("token", sec.RedactCredential(refreshToken)),
		)
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// The tracking row is the revocation authority: a structurally valid
	// token that has been revoked or already rotated is dead
	tokenHash := sec.HashToken(refreshToken)
	if _, err := service.tokenRepository.FindActiveByHash(context, tokenHash, sec.TokenTypeRefresh); err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(context, "token_refresh_rejected",
				slog.String("token", sec.RedactCredential(refreshToken)),
			)
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, err
	}

	// Rotation: the old token dies before its replacement exists
	if err := service.tokenRepository.RevokeByHash(context, tokenHash); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_rotation_failed: %w", err)
	}

	principal, err := lookupPrincipal(context, service.staffRepository, service.userRepository, string(claims.UserType), claims.UserID)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Account no longer active")
		}
		return nil, err
	}

	return service.IssueForPrincipal(context, principal, meta)
}

/*
Logout revokes the presented token and every token issued with it.

Description: Looks up the tracking row for the presented access token and
revokes its whole session (the access/refresh pair of that login). Logging
out with an unknown or already-revoked token succeeds silently — the
operation is idempotent.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - error: Revocation failures
*/
func (service *Service) Logout(context context.Context, accessToken string) error {
	tokenHash := sec.HashToken(accessToken)

	row, err := service.tokenRepository.FindActiveByHash(context, tokenHash, sec.TokenTypeAccess)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil
		}
		return err
	}

	// Revoke the whole login when the pair is linked, otherwise just this token
	if row.SessionID != "" {
		if err := service.tokenRepository.RevokeSession(context, row.SessionID); err != nil {
			return fmt.Errorf("auth_service_logout_failed: %w", err)
		}
		return nil
	}

	if err := service.tokenRepository.RevokeByHash(context, tokenHash); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

/*
PurgeExpiredTokens removes token tracking rows whose expiry has passed.

Description: Expired rows can no longer authenticate anything; purging them
keeps the tracking table bounded. Intended to run periodically from the
process entry point.

Parameters:
  - context: context.Context

Returns:
  - error: Storage failures
*/
func (service *Service) PurgeExpiredTokens(context context.Context) error {
	logger := ctxutil.GetLogger(context)

	if err := service.tokenRepository.DeleteExpired(context); err != nil {
		return fmt.Errorf("auth_token_cleanup_failed: %w", err)
	}

	logger.DebugContext(context, "expired_tokens_purged")
	return nil
}
