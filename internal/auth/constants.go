// Copyright (c) 2026 Klokain. All rights reserved.

package auth

// # Domain Constants

const (
	// UserTypeStaff and UserTypeUser discriminate principal variants in
	// ost_auth_token and ost_external_identity rows.
	UserTypeStaff = "staff"
	UserTypeUser  = "user"

	// TokenTypeBearer is the OAuth2-style token_type reported in every
	// token response.
	TokenTypeBearer = "bearer"

	// StateSeparator joins the random OAuth2 state nonce and the optional
	// return URL into a single state parameter.
	StateSeparator = ":"

	// UserStatusLocked marks an ost_user_account that may no longer log in.
	UserStatusLocked = 2
)
