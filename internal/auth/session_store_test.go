// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/regdesk/internal/auth"
	"github.com/regdesk/regdesk/internal/auth/authtest"
	"github.com/regdesk/regdesk/pkg/errutil"
)

func newSessionStore(t *testing.T) (*auth.SessionStore, *authtest.MemorySessionRepository) {
	t.Helper()
	repo := authtest.NewMemorySessionRepository()
	store, err := auth.NewSessionStore(repo, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return store, repo
}

func TestNewSessionStore(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		_, err := auth.NewSessionStore(nil, slog.New(slog.DiscardHandler))
		assert.Error(t, err)
	})

	t.Run("requires logger", func(t *testing.T) {
		_, err := auth.NewSessionStore(authtest.NewMemorySessionRepository(), nil)
		assert.Error(t, err)
	})
}

func TestSessionStoreIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	store, repo := newSessionStore(t)
	subject := auth.StudentSubject("01ARZ3NDEKTSV4RRFFQ69G5FAV")

	t.Run("issued token validates to its subject", func(t *testing.T) {
		token, err := store.Issue(ctx, subject)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		got, err := store.Validate(ctx, token, nil)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	})

	t.Run("second login replaces the first session", func(t *testing.T) {
		first, err := store.Issue(ctx, subject)
		require.NoError(t, err)
		second, err := store.Issue(ctx, subject)
		require.NoError(t, err)

		_, err = store.Validate(ctx, first, nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		_, err = store.Validate(ctx, second, nil)
		assert.NoError(t, err)

		assert.Equal(t, 1, repo.CountBySubject(subject))
	})

	t.Run("replacement is per subject, not global", func(t *testing.T) {
		other := auth.StudentSubject("01BX5ZZKBKACTAV9WEVGEMMVRZ")
		otherToken, err := store.Issue(ctx, other)
		require.NoError(t, err)

		_, err = store.Issue(ctx, subject)
		require.NoError(t, err)

		_, err = store.Validate(ctx, otherToken, nil)
		assert.NoError(t, err)
	})

	t.Run("admin and student sessions coexist", func(t *testing.T) {
		adminToken, err := store.Issue(ctx, auth.AdminSubject("admin"))
		require.NoError(t, err)
		studentToken, err := store.Issue(ctx, subject)
		require.NoError(t, err)

		_, err = store.Validate(ctx, adminToken, nil)
		assert.NoError(t, err)
		_, err = store.Validate(ctx, studentToken, nil)
		assert.NoError(t, err)
	})
}

func TestSessionStoreValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token fails", func(t *testing.T) {
		store, _ := newSessionStore(t)
		_, err := store.Validate(ctx, "", nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("unknown token fails", func(t *testing.T) {
		store, _ := newSessionStore(t)
		_, err := store.Validate(ctx, "deadbeef", nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	t.Run("expired session fails and is purged", func(t *testing.T) {
		store, repo := newSessionStore(t)
		subject := auth.StudentSubject("id1")
		token, err := store.Issue(ctx, subject)
		require.NoError(t, err)

		repo.ExpireAll(time.Now())

		_, err = store.Validate(ctx, token, nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
		assert.Equal(t, 0, repo.Count())
	})

	t.Run("expired session fails even when purge fails", func(t *testing.T) {
		store, repo := newSessionStore(t)
		token, err := store.Issue(ctx, auth.StudentSubject("id2"))
		require.NoError(t, err)

		repo.ExpireAll(time.Now())
		repo.DeleteErr = errors.New("db down")

		_, err = store.Validate(ctx, token, nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("subject mismatch fails", func(t *testing.T) {
		store, _ := newSessionStore(t)
		token, err := store.Issue(ctx, auth.StudentSubject("alice"))
		require.NoError(t, err)

		expected := auth.StudentSubject("bob")
		_, err = store.Validate(ctx, token, &expected)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_SUBJECT_MISMATCH")
	})

	t.Run("kind mismatch fails for same id", func(t *testing.T) {
		store, _ := newSessionStore(t)
		token, err := store.Issue(ctx, auth.StudentSubject("admin"))
		require.NoError(t, err)

		expected := auth.AdminSubject("admin")
		_, err = store.Validate(ctx, token, &expected)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("storage failure is not ErrNotFound", func(t *testing.T) {
		store, repo := newSessionStore(t)
		repo.GetErr = errors.New("db down")
		_, err := store.Validate(ctx, "sometoken", nil)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionStoreDestroy(t *testing.T) {
	ctx := context.Background()
	store, _ := newSessionStore(t)

	t.Run("destroy removes the session", func(t *testing.T) {
		token, err := store.Issue(ctx, auth.StudentSubject("id"))
		require.NoError(t, err)

		require.NoError(t, store.Destroy(ctx, token))

		_, err = store.Validate(ctx, token, nil)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		token, err := store.Issue(ctx, auth.StudentSubject("id"))
		require.NoError(t, err)

		require.NoError(t, store.Destroy(ctx, token))
		require.NoError(t, store.Destroy(ctx, token))
	})

	t.Run("destroying an unknown token succeeds", func(t *testing.T) {
		assert.NoError(t, store.Destroy(ctx, "nosuchtoken"))
	})

	t.Run("destroying an empty token succeeds", func(t *testing.T) {
		assert.NoError(t, store.Destroy(ctx, ""))
	})
}

func TestSessionStoreRevokeSubject(t *testing.T) {
	ctx := context.Background()
	store, repo := newSessionStore(t)
	subject := auth.StudentSubject("gone")

	token, err := store.Issue(ctx, subject)
	require.NoError(t, err)

	require.NoError(t, store.RevokeSubject(ctx, subject))

	_, err = store.Validate(ctx, token, nil)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.Equal(t, 0, repo.CountBySubject(subject))
}

func TestSessionStoreSweep(t *testing.T) {
	ctx := context.Background()
	store, repo := newSessionStore(t)

	_, err := store.Issue(ctx, auth.StudentSubject("a"))
	require.NoError(t, err)
	_, err = store.Issue(ctx, auth.StudentSubject("b"))
	require.NoError(t, err)

	t.Run("nothing expired, nothing swept", func(t *testing.T) {
		count, err := store.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("expired sessions are swept", func(t *testing.T) {
		repo.ExpireAll(time.Now().Add(-time.Minute))
		count, err := store.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, 0, repo.Count())
	})
}
