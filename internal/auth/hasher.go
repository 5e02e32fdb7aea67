// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// legacySharedSalt is the fixed salt the original portal appended to every
// password before SHA-256. Shared across all legacy credentials, which is
// exactly why the scheme is being migrated away from.
const legacySharedSalt = "regdesk_site_salt_2019"

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a credential under the current scheme (argon2id).
	Hash(password string) (string, error)

	// Verify reports whether password matches the stored credential under
	// the scheme indicated by its tag. Malformed or unknown-scheme input
	// returns false, never an error.
	Verify(password, stored string) bool

	// NeedsUpgrade returns true if the stored credential should be re-hashed
	// under the current scheme.
	NeedsUpgrade(stored string) bool
}

// Hasher implements PasswordHasher with argon2id as the current scheme and
// verification support for legacy shared-salt SHA-256 credentials.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash produces an argon2id hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify dispatches on the stored credential's scheme tag. A credential under
// one scheme never verifies through another scheme's routine.
func (h *Hasher) Verify(password, stored string) bool {
	cred := ParseCredential(stored)
	switch cred.Scheme {
	case SchemeArgon2id:
		return verifyArgon2id(password, cred.Encoded)
	case SchemeLegacySHA256:
		return verifyLegacy(password, cred.Encoded)
	default:
		return false
	}
}

// NeedsUpgrade returns true if the stored credential is not argon2id.
func (h *Hasher) NeedsUpgrade(stored string) bool {
	return ParseCredential(stored).Scheme != SchemeArgon2id
}

// LegacyHash computes a credential under the retired shared-salt scheme.
// Exists only so tests and fixtures can fabricate pre-migration rows.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password + legacySharedSalt))
	return hex.EncodeToString(sum[:])
}

func verifyLegacy(password, storedDigest string) bool {
	computed := LegacyHash(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}

func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Guard the narrowing conversions below.
	if threads > 255 {
		return false
	}
	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// Compile-time interface check.
var _ PasswordHasher = (*Hasher)(nil)
