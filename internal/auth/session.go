// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars = 256 bits of entropy
	SessionLifetime   = 24 * time.Hour // absolute expiry from issuance, no sliding window
)

// SubjectKind separates the student and admin token namespaces. A token
// minted for one kind never validates in the other's context.
type SubjectKind string

// Subject kinds.
const (
	KindStudent SubjectKind = "student"
	KindAdmin   SubjectKind = "admin"
)

// Subject is the identity a session is bound to.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// StudentSubject returns the subject for a student id.
func StudentSubject(id string) Subject {
	return Subject{Kind: KindStudent, ID: id}
}

// AdminSubject returns the subject for the singleton admin identity.
func AdminSubject(username string) Subject {
	return Subject{Kind: KindAdmin, ID: username}
}

// Session represents a live bearer session. Only the SHA-256 hash of the
// token is stored; the plaintext token exists solely in the client's hands.
type Session struct {
	TokenHash string
	Subject   Subject
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(subject Subject, tokenHash string, now time.Time) (*Session, error) {
	if subject.Kind != KindStudent && subject.Kind != KindAdmin {
		return nil, oops.Code("SESSION_INVALID_SUBJECT").
			With("kind", string(subject.Kind)).
			Errorf("unknown subject kind")
	}
	if subject.ID == "" {
		return nil, oops.Code("SESSION_INVALID_SUBJECT").Errorf("subject ID cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}

	return &Session{
		TokenHash: tokenHash,
		Subject:   subject,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionLifetime),
	}, nil
}

// IsExpiredAt reports whether the session is expired at the given time.
// The boundary is inclusive: a session is dead the instant now == ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext token goes to
// the client; the hash is what gets persisted.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Replace atomically removes every session for the given session's
	// subject and inserts the new one, so at most one live session per
	// subject survives concurrent logins.
	Replace(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns ErrNotFound if no such session exists.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session. Deleting a token hash that does
	// not exist is a no-op, not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteBySubject removes all sessions for a subject.
	DeleteBySubject(ctx context.Context, subject Subject) error

	// DeleteExpired removes all sessions expired at the given instant and
	// returns the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
