// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/regdesk/regdesk/internal/observability"
	"github.com/regdesk/regdesk/pkg/errutil"
)

// CredentialRecord is the slice of a student record the auth service needs:
// who they are and what their stored credential looks like.
type CredentialRecord struct {
	SubjectID    string
	DisplayName  string
	PasswordHash string
}

// CredentialStore looks up and updates stored credentials. Implemented by
// the student repository; the auth service never sees full student rows.
type CredentialStore interface {
	// GetCredential retrieves the credential record for an identifier
	// (registration number). Returns ErrNotFound if no such subject exists.
	GetCredential(ctx context.Context, identifier string) (*CredentialRecord, error)

	// UpdateCredentialHash replaces the stored credential for a subject.
	UpdateCredentialHash(ctx context.Context, subjectID, passwordHash string) error
}

// AdminConfig is the out-of-band singleton admin identity. There is no admin
// table; the username and password come from the environment.
type AdminConfig struct {
	Username string
	Password string
}

// LoginResult is returned by a successful student login.
type LoginResult struct {
	Token       string
	SubjectID   string
	DisplayName string
}

// dummyPasswordHash is verified when a login identifier does not exist, so
// unknown-identifier and wrong-password attempts cost the same wall time.
// This is NOT a real credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing uniformity, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service orchestrates credential verification, transparent hash upgrades,
// and session issuance.
type Service struct {
	creds    CredentialStore
	sessions *SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger

	adminUsername     string
	adminPasswordHash string
}

// NewService creates a new auth Service. If the admin config is incomplete,
// admin login is disabled (every attempt fails as invalid credentials).
func NewService(creds CredentialStore, sessions *SessionStore, hasher PasswordHasher, admin AdminConfig, logger *slog.Logger) (*Service, error) {
	if creds == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	s := &Service{
		creds:    creds,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}

	if admin.Username != "" && admin.Password != "" {
		// Hash once at construction so admin verification goes through the
		// same code path as student credentials.
		hash, err := hasher.Hash(admin.Password)
		if err != nil {
			return nil, oops.Code("AUTH_ADMIN_CONFIG_FAILED").
				With("operation", "hash admin password").
				Wrap(err)
		}
		s.adminUsername = admin.Username
		s.adminPasswordHash = hash
	} else {
		logger.Warn("admin identity not configured, admin login disabled")
	}

	return s, nil
}

// invalidCredentials is the single error shape for every failed login.
// Unknown identifier and wrong password are deliberately indistinguishable.
func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
}

// Login authenticates a student and issues a session token, replacing any
// previous session for that student. A successfully verified legacy
// credential is transparently re-hashed under the current scheme; failure to
// persist the upgrade is logged but never fails the login.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	record, lookupErr := s.creds.GetCredential(ctx, identifier)

	targetHash := dummyPasswordHash
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get credential").
				Wrap(lookupErr)
		}
		// Keep record nil; still verify against the dummy hash below.
	} else {
		targetHash = record.PasswordHash
	}

	if !s.hasher.Verify(password, targetHash) || record == nil {
		return nil, invalidCredentials()
	}

	s.maybeUpgradeCredential(ctx, record.SubjectID, targetHash, password)

	token, err := s.sessions.Issue(ctx, StudentSubject(record.SubjectID))
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session").
			Wrap(err)
	}

	s.logger.Info("student logged in", "subject_id", record.SubjectID)

	return &LoginResult{
		Token:       token,
		SubjectID:   record.SubjectID,
		DisplayName: record.DisplayName,
	}, nil
}

// AdminLogin authenticates the configured admin identity and issues a
// session, invalidating any previous admin session.
func (s *Service) AdminLogin(ctx context.Context, username, password string) (string, error) {
	if s.adminUsername == "" {
		return "", invalidCredentials()
	}

	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUsername)) == 1
	passwordMatch := s.hasher.Verify(password, s.adminPasswordHash)
	if !usernameMatch || !passwordMatch {
		return "", invalidCredentials()
	}

	token, err := s.sessions.Issue(ctx, AdminSubject(s.adminUsername))
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue admin session").
			Wrap(err)
	}

	s.logger.Info("admin logged in")

	return token, nil
}

// RequireSession validates a token and returns the authenticated subject.
// When expected is non-nil the session must be bound to exactly that
// subject; this is the cross-check against client-supplied identifiers.
// Authorization decisions must use the returned subject, never the
// client-asserted one.
func (s *Service) RequireSession(ctx context.Context, token string, expected *Subject) (Subject, error) {
	subject, err := s.sessions.Validate(ctx, token, expected)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Subject{}, oops.Code("AUTH_UNAUTHORIZED").Errorf("invalid or expired session")
		}
		return Subject{}, oops.Code("AUTH_SESSION_CHECK_FAILED").Wrap(err)
	}
	return subject, nil
}

// RequireStudent validates a token against a specific student subject.
func (s *Service) RequireStudent(ctx context.Context, token, studentID string) (Subject, error) {
	expected := StudentSubject(studentID)
	return s.RequireSession(ctx, token, &expected)
}

// RequireAdmin validates a token against the singleton admin subject.
func (s *Service) RequireAdmin(ctx context.Context, token string) (Subject, error) {
	if s.adminUsername == "" {
		return Subject{}, oops.Code("AUTH_UNAUTHORIZED").Errorf("invalid or expired session")
	}
	expected := AdminSubject(s.adminUsername)
	return s.RequireSession(ctx, token, &expected)
}

// Logout destroys the session for the token. Always succeeds from the
// caller's point of view; storage failures are logged server-side.
func (s *Service) Logout(ctx context.Context, token string) {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		errutil.LogWarn(s.logger, "logout failed to destroy session", err)
	}
}

// maybeUpgradeCredential re-hashes a proven plaintext under the current
// scheme when the stored form is legacy. Runs only after a successful
// verification; persistence failure is swallowed because the authentication
// decision already succeeded.
func (s *Service) maybeUpgradeCredential(ctx context.Context, subjectID, storedHash, password string) {
	if !s.hasher.NeedsUpgrade(storedHash) {
		return
	}

	newHash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogWarn(s.logger, "credential upgrade hash failed", err)
		return
	}

	if err := s.creds.UpdateCredentialHash(ctx, subjectID, newHash); err != nil {
		errutil.LogWarn(s.logger, "credential upgrade not persisted", err)
		return
	}

	observability.RecordPasswordUpgrade()
	s.logger.Info("credential upgraded to current scheme", "subject_id", subjectID)
}
