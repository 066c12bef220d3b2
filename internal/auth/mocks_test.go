// Copyright (c) 2026 Klokain. All rights reserved.

package auth_test

import (
	"context"
	"time"

	"github.com/klokain/osticket-api/internal/auth"
	"github.com/klokain/osticket-api/internal/platform/dberr"
)

// In-memory repository fakes backing the resolver, mapper, and service tests.
// Missing rows answer with dberr.ErrNotFound exactly like the Postgres
// implementations do.

type mockStaffRepository struct {
	byUsername map[string]*auth.Staff
	byID       map[int]*auth.Staff
}

func (repository *mockStaffRepository) FindActiveByUsername(_ context.Context, username string) (*auth.Staff, error) {
	if staff, ok := repository.byUsername[username]; ok {
		return staff, nil
	}
	return nil, dberr.ErrNotFound
}

func (repository *mockStaffRepository) FindActiveByID(_ context.Context, staffID int) (*auth.Staff, error) {
	if staff, ok := repository.byID[staffID]; ok {
		return staff, nil
	}
	return nil, dberr.ErrNotFound
}

type mockUserRepository struct {
	byEmail map[string]*auth.User
	byID    map[int]*auth.User
}

func (repository *mockUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if user, ok := repository.byEmail[email]; ok {
		return user, nil
	}
	return nil, dberr.ErrNotFound
}

func (repository *mockUserRepository) FindByID(_ context.Context, userID int) (*auth.User, error) {
	if user, ok := repository.byID[userID]; ok {
		return user, nil
	}
	return nil, dberr.ErrNotFound
}

type mockAPIKeyRepository struct {
	byKey map[string]*auth.APIKey
}

func (repository *mockAPIKeyRepository) FindActiveByKey(_ context.Context, rawKey string) (*auth.APIKey, error) {
	if key, ok := repository.byKey[rawKey]; ok {
		return key, nil
	}
	return nil, dberr.ErrNotFound
}

type mockSessionRepository struct {
	staffSessions map[string]*auth.SessionRecord
	userSessions  map[string]*auth.SessionRecord
}

func (repository *mockSessionRepository) FindStaffSession(_ context.Context, sessionID string) (*auth.SessionRecord, error) {
	if record, ok := repository.staffSessions[sessionID]; ok {
		return record, nil
	}
	return nil, dberr.ErrNotFound
}

func (repository *mockSessionRepository) FindUserSession(_ context.Context, sessionID string) (*auth.SessionRecord, error) {
	if record, ok := repository.userSessions[sessionID]; ok {
		return record, nil
	}
	return nil, dberr.ErrNotFound
}

type mockTokenRepository struct {
	created         []*auth.IssuedToken
	revokedHashes   []string
	revokedSessions []string
}

func (repository *mockTokenRepository) Create(_ context.Context, token *auth.IssuedToken) error {
	token.ID = len(repository.created) + 1
	token.IsActive = true
	if token.Created.IsZero() {
		token.Created = time.Now()
	}
	repository.created = append(repository.created, token)
	return nil
}

func (repository *mockTokenRepository) FindActiveByHash(_ context.Context, tokenHash, tokenType string) (*auth.IssuedToken, error) {
	for _, token := range repository.created {
		if token.TokenHash == tokenHash && token.TokenType == tokenType && token.IsActive {
			return token, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (repository *mockTokenRepository) RevokeByHash(_ context.Context, tokenHash string) error {
	repository.revokedHashes = append(repository.revokedHashes, tokenHash)
	for _, token := range repository.created {
		if token.TokenHash == tokenHash {
			token.IsActive = false
		}
	}
	return nil
}

func (repository *mockTokenRepository) RevokeSession(_ context.Context, sessionID string) error {
	repository.revokedSessions = append(repository.revokedSessions, sessionID)
	for _, token := range repository.created {
		if token.SessionID == sessionID {
			token.IsActive = false
		}
	}
	return nil
}

func (repository *mockTokenRepository) DeleteExpired(_ context.Context) error {
	kept := repository.created[:0]
	for _, token := range repository.created {
		if token.ExpiresAt.After(time.Now()) {
			kept = append(kept, token)
		}
	}
	repository.created = kept
	return nil
}

type mockIdentityRepository struct {
	identities map[string]*auth.ExternalIdentity // keyed by provider + "|" + subject
	snapshots  []*auth.ExternalIdentity
}

func (repository *mockIdentityRepository) FindByProviderSubject(_ context.Context, provider, subject string) (*auth.ExternalIdentity, error) {
	if identity, ok := repository.identities[provider+"|"+subject]; ok {
		return identity, nil
	}
	return nil, dberr.ErrNotFound
}

func (repository *mockIdentityRepository) UpdateSnapshot(_ context.Context, identity *auth.ExternalIdentity) error {
	repository.snapshots = append(repository.snapshots, identity)
	return nil
}
