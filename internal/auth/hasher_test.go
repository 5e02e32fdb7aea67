// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdesk/regdesk/internal/auth"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewHasher()

	t.Run("produces argon2id PHC string", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("password1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("password2")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("same password produces different hashes (random salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("malformed stored credentials never verify", func(t *testing.T) {
		malformed := []string{
			"",
			"not-a-valid-hash",
			"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",       // wrong algorithm
			"$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA",       // bad version
			"$argon2id$v=19$invalid$c2FsdA$aGFzaA",              // bad params
			"$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA", // bad salt base64
			"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!", // bad hash base64
			"$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA",    // threads overflow
			strings.ToUpper(auth.LegacyHash("password")),        // uppercase hex is not legacy
		}
		for _, stored := range malformed {
			assert.False(t, hasher.Verify("password", stored), "stored=%q", stored)
		}
	})
}

func TestVerifyLegacyScheme(t *testing.T) {
	hasher := auth.NewHasher()

	t.Run("legacy digest verifies with correct password", func(t *testing.T) {
		stored := auth.LegacyHash("oldpassword")
		assert.True(t, hasher.Verify("oldpassword", stored))
	})

	t.Run("legacy digest fails with wrong password", func(t *testing.T) {
		stored := auth.LegacyHash("oldpassword")
		assert.False(t, hasher.Verify("newpassword", stored))
	})

	t.Run("legacy password never verifies through argon2id path", func(t *testing.T) {
		// An argon2id hash of the legacy digest text is a different credential
		// than the legacy digest itself.
		stored := auth.LegacyHash("oldpassword")
		argonOfDigest, err := hasher.Hash(stored)
		require.NoError(t, err)
		assert.False(t, hasher.Verify("oldpassword", argonOfDigest))
	})
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := auth.NewHasher()

	t.Run("legacy digest needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade(auth.LegacyHash("password")))
	})

	t.Run("argon2id hash does not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("unknown format needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("garbage"))
	})
}
