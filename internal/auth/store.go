// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"context"
	"time"
)

// # Principal Data Access

// StaffRepository defines the data access contract for helpdesk agents.
type StaffRepository interface {

	/*
		FindActiveByUsername returns the active staff member with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *Staff: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindActiveByUsername(context context.Context, username string) (*Staff, error)

	/*
		FindActiveByID returns the active staff member with the given ID.

		Parameters:
		  - context: context.Context
		  - staffID: int

		Returns:
		  - *Staff: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindActiveByID(context context.Context, staffID int) (*Staff, error)
}

// UserRepository defines the data access contract for end users.
type UserRepository interface {

	/*
		FindByEmail returns the end user registered under the given email address.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByID returns the end user with the given ID.

		Parameters:
		  - context: context.Context
		  - userID: int

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, userID int) (*User, error)
}

// APIKeyRepository defines the data access contract for machine credentials.
type APIKeyRepository interface {

	/*
		FindActiveByKey returns the active API key matching the given raw key value.

		Parameters:
		  - context: context.Context
		  - rawKey: string

		Returns:
		  - *APIKey: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindActiveByKey(context context.Context, rawKey string) (*APIKey, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for legacy osTicket
// session cookies. Staff and end-user sessions live in separate tables and
// are probed in that order.
type SessionRepository interface {

	/*
		FindStaffSession returns the unexpired staff session with the given ID.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - *SessionRecord: Hydrated session row
		  - error: Database retrieval failures
	*/
	FindStaffSession(context context.Context, sessionID string) (*SessionRecord, error)

	/*
		FindUserSession returns the unexpired end-user session with the given ID.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - *SessionRecord: Hydrated session row
		  - error: Database retrieval failures
	*/
	FindUserSession(context context.Context, sessionID string) (*SessionRecord, error)
}

// # Token Data Access

// TokenRepository defines the data access contract for tracked issued tokens.
type TokenRepository interface {

	/*
		Create persists a new issued-token row (hash only, never raw material).

		Parameters:
		  - context: context.Context
		  - token: *IssuedToken

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, token *IssuedToken) error

	/*
		FindActiveByHash returns the unrevoked, unexpired token row matching
		the given hash and token type.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - tokenType: string ("access" or "refresh")

		Returns:
		  - *IssuedToken: Hydrated token row
		  - error: Database retrieval failures
	*/
	FindActiveByHash(context context.Context, tokenHash, tokenType string) (*IssuedToken, error)

	/*
		RevokeByHash marks the token row with the given hash as revoked.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	RevokeByHash(context context.Context, tokenHash string) error

	/*
		RevokeSession marks every token row issued under the given session as revoked.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Persistence failures
	*/
	RevokeSession(context context.Context, sessionID string) error

	/*
		DeleteExpired physically removes token rows whose expiry is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Cleanup failures
	*/
	DeleteExpired(context context.Context) error
}

// # External Identity Data Access

// ExternalIdentityRepository defines the data access contract for IdP subject
// mappings. Rows are provisioned administratively; login never creates them.
type ExternalIdentityRepository interface {

	/*
		FindByProviderSubject returns the mapping for a provider's stable subject ID.

		Parameters:
		  - context: context.Context
		  - provider: string
		  - subject: string

		Returns:
		  - *ExternalIdentity: Hydrated mapping row
		  - error: Database retrieval failures
	*/
	FindByProviderSubject(context context.Context, provider, subject string) (*ExternalIdentity, error)

	/*
		UpdateSnapshot rewrites the mapping's profile snapshot and last-login
		timestamp after a successful federated authentication.

		Parameters:
		  - context: context.Context
		  - identity: *ExternalIdentity

		Returns:
		  - error: Persistence failures
	*/
	UpdateSnapshot(context context.Context, identity *ExternalIdentity) error
}

// # Volatile Data Access

// StateRepository defines the contract for storing single-use OAuth2 state
// nonces for the duration of an authorization round trip.
type StateRepository interface {

	/*
		Set stores a state nonce for a limited duration.

		Parameters:
		  - context: context.Context
		  - state: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, state string, ttl time.Duration) error

	/*
		Consume atomically retrieves and deletes a state nonce, so each state
		value authorizes at most one callback.

		Parameters:
		  - context: context.Context
		  - state: string

		Returns:
		  - bool: Whether the state existed and was consumed
		  - error: Retrieval failures
	*/
	Consume(context context.Context, state string) (bool, error)
}
