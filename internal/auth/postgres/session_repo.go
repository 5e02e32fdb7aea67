// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package postgres implements auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/regdesk/regdesk/internal/auth"
)

// DB is the subset of pgxpool.Pool the repositories need. Satisfied by both
// *pgxpool.Pool and pgxmock pools.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Replace removes every session for the new session's subject and inserts
// the new one in a single transaction, so concurrent logins for the same
// subject can never leave two live rows behind.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // no-op after commit
	}()

	_, err = tx.Exec(ctx, `
		DELETE FROM sessions WHERE subject_kind = $1 AND subject_id = $2
	`, string(session.Subject.Kind), session.Subject.ID)
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "delete prior sessions").
			With("subject_kind", string(session.Subject.Kind)).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (token_hash, subject_kind, subject_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.TokenHash,
		string(session.Subject.Kind),
		session.Subject.ID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "insert session").
			With("subject_kind", string(session.Subject.Kind)).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT token_hash, subject_kind, subject_id, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	var (
		hash        string
		subjectKind string
		subjectID   string
		createdAt   time.Time
		expiresAt   time.Time
	)
	if err := row.Scan(&hash, &subjectKind, &subjectID, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	return &auth.Session{
		TokenHash: hash,
		Subject:   auth.Subject{Kind: auth.SubjectKind(subjectKind), ID: subjectID},
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// DeleteByTokenHash removes a session. Zero rows affected is a valid state,
// not an error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteBySubject removes all sessions for a subject.
func (r *SessionRepository) DeleteBySubject(ctx context.Context, subject auth.Subject) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE subject_kind = $1 AND subject_id = $2
	`, string(subject.Kind), subject.ID)
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_SUBJECT_FAILED").
			With("operation", "delete sessions by subject").
			With("subject_kind", string(subject.Kind)).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all sessions expired at the given instant and
// returns the count. The boundary is inclusive to match lazy expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
