// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/regdesk/regdesk/pkg/errutil"
)

// SessionStore issues, validates, and invalidates bearer session tokens.
// All state lives in the repository; the store itself is stateless and safe
// for concurrent use.
type SessionStore struct {
	repo   SessionRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(repo SessionRepository, logger *slog.Logger) (*SessionStore, error) {
	if repo == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &SessionStore{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Issue creates a session for the subject, replacing any existing sessions
// for that subject, and returns the plaintext token.
func (s *SessionStore) Issue(ctx context.Context, subject Subject) (string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	session, err := NewSession(subject, tokenHash, s.now())
	if err != nil {
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := s.repo.Replace(ctx, session); err != nil {
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "persist session").
			With("subject_kind", string(subject.Kind)).
			Wrap(err)
	}

	return token, nil
}

// Validate resolves a token to its subject. It returns ErrNotFound (wrapped)
// when the token is unknown, expired, or bound to a subject other than
// expected. Expired sessions are purged on touch; expiry is absolute from
// issuance, so a successful validation does not extend the session.
func (s *SessionStore) Validate(ctx context.Context, token string, expected *Subject) (Subject, error) {
	if token == "" {
		return Subject{}, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
	}

	tokenHash := HashSessionToken(token)

	session, err := s.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Subject{}, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
		}
		return Subject{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		// Lazy expiry: purge on touch, best effort.
		if delErr := s.repo.DeleteByTokenHash(ctx, tokenHash); delErr != nil {
			errutil.LogWarn(s.logger, "failed to purge expired session", delErr)
		}
		return Subject{}, oops.Code("SESSION_EXPIRED").Wrap(ErrNotFound)
	}

	if expected != nil && (session.Subject.Kind != expected.Kind || session.Subject.ID != expected.ID) {
		return Subject{}, oops.Code("SESSION_SUBJECT_MISMATCH").Wrap(ErrNotFound)
	}

	return session.Subject, nil
}

// Destroy deletes the session for the token. Destroying a token that does
// not exist is a no-op.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// RevokeSubject destroys every session for a subject. Used when the subject
// itself goes away (admin deleting a student account).
func (s *SessionStore) RevokeSubject(ctx context.Context, subject Subject) error {
	if err := s.repo.DeleteBySubject(ctx, subject); err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("subject_kind", string(subject.Kind)).
			Wrap(err)
	}
	return nil
}

// Sweep removes all expired sessions. Lazy expiry-on-touch is authoritative;
// this exists so an operator cron can keep the table small.
func (s *SessionStore) Sweep(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return count, nil
}
