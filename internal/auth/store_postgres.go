// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klokain/osticket-api/internal/platform/dberr"
)

// # Staff Repository

// PostgresStaffRepository implements the StaffRepository interface using pgx.
type PostgresStaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository creates a new PostgreSQL implementation of the StaffRepository.
func NewStaffRepository(pool *pgxpool.Pool) *PostgresStaffRepository {
	return &PostgresStaffRepository{pool: pool}
}

/*
FindActiveByUsername retrieves an active staff row by username.

Description: Lookup for password logins and session resolution. Inactive
agents are filtered at the query level so a disabled account can never
authenticate.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *Staff: Hydrated staff entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresStaffRepository) FindActiveByUsername(context context.Context, username string) (*Staff, error) {
	const query = `
		SELECT staff_id, dept_id, role_id, username, firstname, lastname,
		       COALESCE(passwd, ''), COALESCE(email, ''), isactive, isadmin, created
		FROM ost_staff
		WHERE username = $1 AND isactive = TRUE`

	staff := &Staff{}
	err := repository.pool.QueryRow(context, query, username).Scan(
		&staff.StaffID,
		&staff.DeptID,
		&staff.RoleID,
		&staff.Username,
		&staff.FirstName,
		&staff.LastName,
		&staff.Passwd,
		&staff.Email,
		&staff.IsActive,
		&staff.IsAdmin,
		&staff.Created,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_staff_repo_find_by_username_failed: %w", err)
	}

	return staff, nil
}

/*
FindActiveByID retrieves an active staff row by primary key.

Description: Live principal re-read used by token resolution, session
resolution, and external identity mapping. An agent deactivated after a
credential was issued disappears from this query and the credential dies
with them.

Parameters:
  - context: context.Context
  - staffID: int

Returns:
  - *Staff: Hydrated staff entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresStaffRepository) FindActiveByID(context context.Context, staffID int) (*Staff, error) {
	const query = `
		SELECT staff_id, dept_id, role_id, username, firstname, lastname,
		       COALESCE(passwd, ''), COALESCE(email, ''), isactive, isadmin, created
		FROM ost_staff
		WHERE staff_id = $1 AND isactive = TRUE`

	staff := &Staff{}
	err := repository.pool.QueryRow(context, query, staffID).Scan(
		&staff.StaffID,
		&staff.DeptID,
		&staff.RoleID,
		&staff.Username,
		&staff.FirstName,
		&staff.LastName,
		&staff.Passwd,
		&staff.Email,
		&staff.IsActive,
		&staff.IsAdmin,
		&staff.Created,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_staff_repo_find_by_id_failed: %w", err)
	}

	return staff, nil
}

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
FindByEmail retrieves an end user by any of their registered email addresses.

Description: Joins ost_user with ost_user_email for the address and with
ost_user_account for the credential hash and account status.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated user entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT u.id, u.org_id, u.name, e.address,
		       COALESCE(a.status, 0), COALESCE(a.passwd, '')
		FROM ost_user u
		JOIN ost_user_email e ON e.user_id = u.id
		LEFT JOIN ost_user_account a ON a.user_id = u.id
		WHERE e.address = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&user.ID,
		&user.OrgID,
		&user.Name,
		&user.Email,
		&user.Status,
		&user.Passwd,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
FindByID retrieves an end user by primary key.

Description: Live principal re-read; resolves the default email address for
profile responses and token claims.

Parameters:
  - context: context.Context
  - userID: int

Returns:
  - *User: Hydrated user entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, userID int) (*User, error) {
	const query = `
		SELECT u.id, u.org_id, u.name, COALESCE(e.address, ''),
		       COALESCE(a.status, 0), COALESCE(a.passwd, '')
		FROM ost_user u
		LEFT JOIN ost_user_email e ON e.id = u.default_email_id
		LEFT JOIN ost_user_account a ON a.user_id = u.id
		WHERE u.id = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, userID).Scan(
		&user.ID,
		&user.OrgID,
		&user.Name,
		&user.Email,
		&user.Status,
		&user.Passwd,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

// # API Key Repository

// PostgresAPIKeyRepository implements the APIKeyRepository interface using pgx.
type PostgresAPIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository creates a new PostgreSQL implementation of the APIKeyRepository.
func NewAPIKeyRepository(pool *pgxpool.Pool) *PostgresAPIKeyRepository {
	return &PostgresAPIKeyRepository{pool: pool}
}

/*
FindActiveByKey retrieves an active API key row by its raw key value.

Description: The key column carries the raw credential as provisioned in the
osTicket admin panel; only active keys resolve. IP restriction is evaluated
by the caller, not here, so an IP rejection can be reported distinctly from
an unknown key.

Parameters:
  - context: context.Context
  - rawKey: string

Returns:
  - *APIKey: Hydrated key entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresAPIKeyRepository) FindActiveByKey(context context.Context, rawKey string) (*APIKey, error) {
	const query = `
		SELECT id, isactive, ipaddr, apikey, can_create_tickets, can_exec_cron,
		       COALESCE(notes, ''), created
		FROM ost_api_key
		WHERE apikey = $1 AND isactive = TRUE`

	key := &APIKey{}
	err := repository.pool.QueryRow(context, query, rawKey).Scan(
		&key.ID,
		&key.IsActive,
		&key.IPAddr,
		&key.Key,
		&key.CanCreateTickets,
		&key.CanExecCron,
		&key.Notes,
		&key.Created,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_apikey_repo_find_failed: %w", err)
	}

	return key, nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface over
// the two legacy osTicket session tables.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
FindStaffSession retrieves an unexpired staff session by its opaque ID.

Description: The subject ID is scanned as text because legacy rows are not
guaranteed to hold well-formed numeric identifiers; the resolver decides
whether the value is usable.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *SessionRecord: Hydrated session row
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresSessionRepository) FindStaffSession(context context.Context, sessionID string) (*SessionRecord, error) {
	const query = `
		SELECT session_id, staff_id::text, session_expire, session_updated, user_ip, user_agent
		FROM ost_staff_session
		WHERE session_id = $1 AND session_expire > NOW()`

	return repository.scanSession(context, query, sessionID, "postgres_session_repo_find_staff_failed")
}

/*
FindUserSession retrieves an unexpired end-user session by its opaque ID.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *SessionRecord: Hydrated session row
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresSessionRepository) FindUserSession(context context.Context, sessionID string) (*SessionRecord, error) {
	const query = `
		SELECT session_id, user_id::text, session_expire, session_updated, user_ip, user_agent
		FROM ost_user_session
		WHERE session_id = $1 AND session_expire > NOW()`

	return repository.scanSession(context, query, sessionID, "postgres_session_repo_find_user_failed")
}

// scanSession runs one session lookup; the two tables share a row shape.
func (repository *PostgresSessionRepository) scanSession(context context.Context, query, sessionID, failLabel string) (*SessionRecord, error) {
	record := &SessionRecord{}
	err := repository.pool.QueryRow(context, query, sessionID).Scan(
		&record.SessionID,
		&record.SubjectID,
		&record.SessionExpire,
		&record.SessionUpdated,
		&record.UserIP,
		&record.UserAgent,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", failLabel, err)
	}

	return record, nil
}

// # Token Repository

// PostgresTokenRepository implements the TokenRepository interface using pgx.
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new PostgreSQL implementation of the TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

/*
Create persists a new issued-token row into ost_auth_token.

Description: Stores only the SHA-256 hash of the token material alongside
audit metadata (session, client IP, user agent).

Parameters:
  - context: context.Context
  - token: *IssuedToken

Returns:
  - error: Persistence failures
*/
func (repository *PostgresTokenRepository) Create(context context.Context, token *IssuedToken) error {
	const query = `
		INSERT INTO ost_auth_token (
			user_type, user_id, token_type, token_hash, session_id,
			ip_address, user_agent, expires_at, is_active, created, updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $9)
		RETURNING id`

	if token.Created.IsZero() {
		token.Created = time.Now()
	}

	err := repository.pool.QueryRow(context, query,
		token.UserType,
		token.UserID,
		token.TokenType,
		token.TokenHash,
		token.SessionID,
		token.IPAddress,
		token.UserAgent,
		token.ExpiresAt,
		token.Created,
	).Scan(&token.ID)

	if err != nil {
		return fmt.Errorf("postgres_token_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindActiveByHash retrieves the live token row matching a hash and type.

Description: A row is live only while it is active, unrevoked, and unexpired;
all three conditions are enforced in the query.

Parameters:
  - context: context.Context
  - tokenHash: string
  - tokenType: string

Returns:
  - *IssuedToken: Hydrated token row
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresTokenRepository) FindActiveByHash(context context.Context, tokenHash, tokenType string) (*IssuedToken, error) {
	const query = `
		SELECT id, user_type, user_id, token_type, token_hash,
		       COALESCE(session_id, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''),
		       expires_at, is_active, revoked_at, created
		FROM ost_auth_token
		WHERE token_hash = $1 AND token_type = $2
		  AND is_active = TRUE AND revoked_at IS NULL AND expires_at > NOW()`

	token := &IssuedToken{}
	err := repository.pool.QueryRow(context, query, tokenHash, tokenType).Scan(
		&token.ID,
		&token.UserType,
		&token.UserID,
		&token.TokenType,
		&token.TokenHash,
		&token.SessionID,
		&token.IPAddress,
		&token.UserAgent,
		&token.ExpiresAt,
		&token.IsActive,
		&token.RevokedAt,
		&token.Created,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_token_repo_find_failed: %w", err)
	}

	return token, nil
}

/*
RevokeByHash marks the token row with the given hash as revoked.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Revocation failures
*/
func (repository *PostgresTokenRepository) RevokeByHash(context context.Context, tokenHash string) error {
	const query = `
		UPDATE ost_auth_token
		SET is_active = FALSE, revoked_at = NOW(), updated = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL`

	_, err := repository.pool.Exec(context, query, tokenHash)
	if err != nil {
		return fmt.Errorf("postgres_token_repo_revoke_failed: %w", err)
	}
	return nil
}

/*
RevokeSession marks every token issued under a session as revoked.

Description: Used by logout so the access/refresh pair of a login dies together.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Batch revocation failures
*/
func (repository *PostgresTokenRepository) RevokeSession(context context.Context, sessionID string) error {
	const query = `
		UPDATE ost_auth_token
		SET is_active = FALSE, revoked_at = NOW(), updated = NOW()
		WHERE session_id = $1 AND revoked_at IS NULL`

	_, err := repository.pool.Exec(context, query, sessionID)
	if err != nil {
		return fmt.Errorf("postgres_token_repo_revoke_session_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired permanently removes token rows past their expiry.

Description: Cleanup task to reclaim storage from stale token rows.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresTokenRepository) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM ost_auth_token WHERE expires_at <= NOW()"
	_, err := repository.pool.Exec(context, query)
	if err != nil {
		return fmt.Errorf("postgres_token_repo_delete_expired_failed: %w", err)
	}
	return nil
}

// # External Identity Repository

// PostgresExternalIdentityRepository implements the ExternalIdentityRepository
// interface using pgx.
type PostgresExternalIdentityRepository struct {
	pool *pgxpool.Pool
}

// NewExternalIdentityRepository creates a new PostgreSQL implementation of the
// ExternalIdentityRepository.
func NewExternalIdentityRepository(pool *pgxpool.Pool) *PostgresExternalIdentityRepository {
	return &PostgresExternalIdentityRepository{pool: pool}
}

/*
FindByProviderSubject retrieves a mapping row by provider and stable subject ID.

Parameters:
  - context: context.Context
  - provider: string
  - subject: string

Returns:
  - *ExternalIdentity: Hydrated mapping row
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresExternalIdentityRepository) FindByProviderSubject(context context.Context, provider, subject string) (*ExternalIdentity, error) {
	const query = `
		SELECT id, provider, external_user_id, COALESCE(external_email, ''),
		       COALESCE(external_username, ''), COALESCE(external_name, ''),
		       osticket_user_type, osticket_user_id, identity_verified,
		       last_login, COALESCE(provider_metadata, ''), created, updated
		FROM ost_external_identity
		WHERE provider = $1 AND external_user_id = $2`

	identity := &ExternalIdentity{}
	err := repository.pool.QueryRow(context, query, provider, subject).Scan(
		&identity.ID,
		&identity.Provider,
		&identity.ExternalUserID,
		&identity.ExternalEmail,
		&identity.ExternalUsername,
		&identity.ExternalName,
		&identity.UserType,
		&identity.UserID,
		&identity.IdentityVerified,
		&identity.LastLogin,
		&identity.ProviderMetadata,
		&identity.Created,
		&identity.Updated,
	)

	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_failed: %w", err)
	}

	return identity, nil
}

/*
UpdateSnapshot rewrites a mapping's profile snapshot after a federated login.

Description: The snapshot (email, username, display name, raw metadata) is
overwritten with whatever the provider asserted most recently, and the
last-login timestamp is refreshed. The mapping itself (user type and ID)
is never touched here.

Parameters:
  - context: context.Context
  - identity: *ExternalIdentity

Returns:
  - error: Persistence failures
*/
func (repository *PostgresExternalIdentityRepository) UpdateSnapshot(context context.Context, identity *ExternalIdentity) error {
	const query = `
		UPDATE ost_external_identity
		SET external_email = $2, external_username = $3, external_name = $4,
		    provider_metadata = $5, identity_verified = TRUE,
		    last_login = NOW(), updated = NOW()
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query,
		identity.ID,
		identity.ExternalEmail,
		identity.ExternalUsername,
		identity.ExternalName,
		identity.ProviderMetadata,
	)

	if err != nil {
		return fmt.Errorf("postgres_identity_repo_update_snapshot_failed: %w", err)
	}

	return nil
}
