// Copyright (c) 2026 Klokain. All rights reserved.

/*
Package auth implements authentication resolution for the osTicket API.

Every request is resolved to exactly one authoritative identity — staff, end
user, API key, or anonymous — from whichever credential it presents: a bearer
JWT, a static X-API-Key header, or a legacy OSTSESSID session cookie.

# Architecture

  - Resolver: Orchestrates credential precedence and terminal failures.
  - Service: Login, token issuance, rotation, and revocation flows.
  - Mapper: Links external IdP identities (Keycloak, Microsoft) to internal principals.
  - Repositories: Abstracted interfaces over the osTicket schema (Postgres)
    and volatile OAuth2 state (Redis).

Roles and permissions are always read from the internal store. External
providers only verify identity; they never inject authorization.
*/
package auth

import (
	"strings"
	"time"

	"github.com/klokain/osticket-api/internal/platform/sec"
)

// # Domain Entities

// Staff represents a helpdesk agent row from ost_staff.
type Staff struct {
	StaffID   int       `json:"staff_id"`
	DeptID    int       `json:"dept_id"`
	RoleID    int       `json:"role_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Passwd    string    `json:"-"` // Explicitly omitted from JSON for security.
	Email     string    `json:"email"`
	IsActive  bool      `json:"isactive"`
	IsAdmin   bool      `json:"isadmin"`
	Created   time.Time `json:"created"`
}

// FullName joins the staff member's first and last names.
func (staff *Staff) FullName() string {
	return strings.TrimSpace(staff.FirstName + " " + staff.LastName)
}

// Principal converts the staff row into the canonical request identity.
func (staff *Staff) Principal() *sec.Principal {
	return &sec.Principal{
		Type:        sec.PrincipalStaff,
		ID:          staff.StaffID,
		Username:    staff.Username,
		DisplayName: staff.FullName(),
		Email:       staff.Email,
		IsAdmin:     staff.IsAdmin,
		DeptID:      staff.DeptID,
	}
}

// User represents an end user (ticket owner) joined across ost_user,
// ost_user_email, and ost_user_account.
type User struct {
	ID     int    `json:"id"`
	OrgID  int    `json:"org_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status int    `json:"status"`
	Passwd string `json:"-"` // Account password hash. Omitted for security.
}

// Principal converts the user row into the canonical request identity.
func (user *User) Principal() *sec.Principal {
	return &sec.Principal{
		Type:        sec.PrincipalUser,
		ID:          user.ID,
		DisplayName: user.Name,
		Email:       user.Email,
	}
}

// APIKey represents a machine credential row from ost_api_key.
type APIKey struct {
	ID               int       `json:"id"`
	IsActive         bool      `json:"isactive"`
	IPAddr           string    `json:"ipaddr"`
	Key              string    `json:"-"` // The raw key material. Omitted for security.
	CanCreateTickets bool      `json:"can_create_tickets"`
	CanExecCron      bool      `json:"can_exec_cron"`
	Notes            string    `json:"notes,omitempty"`
	Created          time.Time `json:"created"`
}

// Principal converts the API key row into the canonical request identity.
func (key *APIKey) Principal() *sec.Principal {
	return &sec.Principal{
		Type:             sec.PrincipalAPIKey,
		ID:               key.ID,
		CanCreateTickets: key.CanCreateTickets,
		CanExecCron:      key.CanExecCron,
	}
}

// SessionRecord represents a legacy session row from ost_staff_session or
// ost_user_session.
//
// SubjectID is carried as text: legacy session rows have been observed with
// non-numeric subject values, and those must fail resolution rather than
// corrupt a scan.
type SessionRecord struct {
	SessionID      string    `json:"session_id"`
	SubjectID      string    `json:"subject_id"`
	SessionExpire  time.Time `json:"session_expire"`
	SessionUpdated time.Time `json:"session_updated"`
	UserIP         string    `json:"user_ip"`
	UserAgent      string    `json:"user_agent"`
}

// IssuedToken represents a tracked token row from ost_auth_token. Only the
// SHA-256 hash of the token material is ever stored.
type IssuedToken struct {
	ID        int        `json:"id"`
	UserType  string     `json:"user_type"`
	UserID    int        `json:"user_id"`
	TokenType string     `json:"token_type"`
	TokenHash string     `json:"-"`
	SessionID string     `json:"session_id,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	IsActive  bool       `json:"is_active"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	Created   time.Time  `json:"created"`
}

// ExternalIdentity represents a row from ost_external_identity: the durable
// link between a provider subject and an internal principal, plus a profile
// snapshot refreshed on every federated login.
type ExternalIdentity struct {
	ID               int        `json:"id"`
	Provider         string     `json:"provider"`
	ExternalUserID   string     `json:"external_user_id"`
	ExternalEmail    string     `json:"external_email,omitempty"`
	ExternalUsername string     `json:"external_username,omitempty"`
	ExternalName     string     `json:"external_name,omitempty"`
	UserType         string     `json:"osticket_user_type"` // "staff" or "user"
	UserID           int        `json:"osticket_user_id"`
	IdentityVerified bool       `json:"identity_verified"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	ProviderMetadata string     `json:"-"` // Raw provider JSON. Never exposed.
	Created          time.Time  `json:"created"`
	Updated          time.Time  `json:"updated"`
}

// # Field Identifiers

// Global field names for validation and response payloads in the auth domain.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUserType     = "user_type"
	FieldReturnURL    = "return_url"
	FieldProvider     = "provider"
	FieldMessage      = "message"
)
