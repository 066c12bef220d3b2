// Copyright (c) 2026 Klokain. All rights reserved.

package sec

import "github.com/klokain/osticket-api/internal/platform/constants"

// # Principal Types

// PrincipalType discriminates the closed set of identities a request can
// resolve to.
type PrincipalType string

const (
	// PrincipalStaff is a helpdesk agent authenticated against ost_staff.
	PrincipalStaff PrincipalType = "staff"

	// PrincipalUser is an end user (ticket owner) authenticated against ost_user.
	PrincipalUser PrincipalType = "user"

	// PrincipalAPIKey is a machine caller holding a static API key.
	PrincipalAPIKey PrincipalType = "api_key"

	// PrincipalAnonymous is the absence of any credential. Downstream
	// authorization decides whether that is sufficient for a resource.
	PrincipalAnonymous PrincipalType = "anonymous"
)

// Principal is the single authoritative identity of a request.
//
// It is a closed tagged union over staff / user / API key / anonymous: the
// Type field selects the variant and only that variant's fields are set.
// Role-bearing fields (IsAdmin, DeptID) are always read from the internal
// store — never from externally-asserted claims.
type Principal struct {
	Type PrincipalType `json:"type"`

	// ID is the stable numeric identity within the variant's table
	// (staff_id, user id, or API key id). Zero for anonymous.
	ID int `json:"id,omitempty"`

	// Provider-agnostic profile fields.
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`

	// Staff-only role indicators.
	IsAdmin bool `json:"is_admin,omitempty"`
	DeptID  int  `json:"dept_id,omitempty"`

	// API-key-only coarse capability flags.
	CanCreateTickets bool `json:"can_create_tickets,omitempty"`
	CanExecCron      bool `json:"can_exec_cron,omitempty"`
}

// Anonymous returns the principal used when no credential is presented.
func Anonymous() *Principal {
	return &Principal{Type: PrincipalAnonymous}
}

// IsAuthenticated reports whether the principal carries an established identity.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Type != PrincipalAnonymous
}

// IsStaff reports whether the principal is a staff member.
func (p *Principal) IsStaff() bool {
	return p != nil && p.Type == PrincipalStaff
}

// IsAdminStaff reports whether the principal is a staff member with the
// admin flag set.
func (p *Principal) IsAdminStaff() bool {
	return p.IsStaff() && p.IsAdmin
}

// # Presented Credentials

// Credentials is the raw authentication material extracted from a single
// request, before any of it has been validated.
//
// At most one field is consumed during resolution: the first one present in
// the fixed precedence order (bearer token, API key, session cookie) decides
// the request and any lower-priority fields are ignored.
type Credentials struct {
	// BearerToken is the value after "Bearer " in the Authorization header.
	BearerToken string

	// APIKey is the value of the X-API-Key header.
	APIKey string

	// SessionID is the opaque OSTSESSID cookie value.
	SessionID string

	// ClientIP is the proxy-aware client address, used for API key IP
	// restriction checks and audit logging.
	ClientIP string

	// UserAgent is recorded alongside issued tokens for audit purposes.
	UserAgent string
}

// # Log Redaction

// RedactCredential truncates a secret to a short prefix safe for log output.
//
// Secrets shorter than the prefix are fully masked so that redaction never
// reveals more of a short credential than a long one.
func RedactCredential(secret string) string {
	if len(secret) <= constants.CredentialPrefixLen {
		return "..."
	}
	return secret[:constants.CredentialPrefixLen] + "..."
}
