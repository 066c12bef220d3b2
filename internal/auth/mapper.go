// Copyright (c) 2026 Klokain. All rights reserved.

package auth

import (
	"context"
	"log/slog"

	"github.com/klokain/osticket-api/internal/oauth2"
	"github.com/klokain/osticket-api/internal/platform/apperr"
	"github.com/klokain/osticket-api/internal/platform/ctxutil"
	"github.com/klokain/osticket-api/internal/platform/dberr"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

// # External Identity Mapping

// Mapper links provider-asserted identities to internal principals.
//
// The mapping table is the only bridge between an IdP subject and an osTicket
// account, and it is provisioned administratively. A federated login can
// refresh a mapping's profile snapshot but can never create a mapping:
// auto-provisioning is rejected even when the deployment flag requests it,
// because provisioning requires org assignment and role decisions that an
// IdP assertion cannot carry.
type Mapper struct {
	identityRepository ExternalIdentityRepository
	staffRepository    StaffRepository
	userRepository     UserRepository
	autoCreateEnabled  bool
}

// NewMapper constructs a [Mapper] with its data dependencies.
func NewMapper(
	identityRepo ExternalIdentityRepository,
	staffRepo StaffRepository,
	userRepo UserRepository,
	autoCreateEnabled bool,
) *Mapper {
	return &Mapper{
		identityRepository: identityRepo,
		staffRepository:    staffRepo,
		userRepository:     userRepo,
		autoCreateEnabled:  autoCreateEnabled,
	}
}

/*
ResolveExternal maps a verified provider profile to an internal principal.

Description: Requires a stable subject identifier, looks up the administrative
mapping, rewrites the profile snapshot with whatever the provider asserted on
this login, and re-reads the live internal principal. Roles and permissions
come exclusively from the internal store.

Parameters:
  - context: context.Context
  - provider: string (registry name, e.g. "keycloak")
  - profile: oauth2.UserProfile (verified claims from the IdP)

Returns:
  - *sec.Principal: The mapped internal identity
  - error: Unauthorized when unmapped or vanished, or storage failures
*/
func (mapper *Mapper) ResolveExternal(context context.Context, provider string, profile oauth2.UserProfile) (*sec.Principal, error) {
	logger := ctxutil.GetLogger(context)

	// A profile without a stable subject cannot be mapped to anything
	if profile.Subject == "" {
		logger.WarnContext(context, "external_login_rejected",
			slog.String("provider", provider),
			slog.String("reason", "no subject identifier in provider response"),
		)
		return nil, apperr.Unauthorized("External provider did not supply a subject identifier")
	}

	identity, err := mapper.identityRepository.FindByProviderSubject(context, provider, profile.Subject)
	if err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(context, "external_login_rejected",
				slog.String("provider", provider),
				slog.String("subject", profile.Subject),
				slog.String("reason", "no identity mapping"),
				slog.Bool("auto_create_requested", mapper.autoCreateEnabled),
			)
			if mapper.autoCreateEnabled {
				return nil, apperr.Unauthorized("Account provisioning from external identity requires administrator action")
			}
			return nil, apperr.Unauthorized("External identity is not linked to an account")
		}
		return nil, err
	}

	// Re-read the mapped principal; a stale mapping to a vanished or
	// deactivated account fails the login
	principal, err := lookupPrincipal(context, mapper.staffRepository, mapper.userRepository, identity.UserType, identity.UserID)
	if err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(context, "external_login_rejected",
				slog.String("provider", provider),
				slog.String("subject", profile.Subject),
				slog.String("reason", "mapped account no longer active"),
			)
			return nil, apperr.Unauthorized("Mapped account is no longer active")
		}
		return nil, err
	}

	// The snapshot is rewritten only after the whole login has succeeded;
	// a failed attempt persists nothing
	identity.ExternalEmail = profile.Email
	identity.ExternalUsername = profile.Username
	identity.ExternalName = profile.Name
	identity.ProviderMetadata = profile.Raw
	if err := mapper.identityRepository.UpdateSnapshot(context, identity); err != nil {
		return nil, err
	}

	logger.InfoContext(context, "external_login_mapped",
		slog.String("provider", provider),
		slog.String("subject", profile.Subject),
		slog.String("principal_type", string(principal.Type)),
		slog.Int("principal_id", principal.ID),
	)
	return principal, nil
}
