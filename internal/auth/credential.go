// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package auth

// Scheme identifies the hashing algorithm that produced a stored credential.
type Scheme int

// Supported credential schemes.
const (
	// SchemeUnknown marks a credential that matches no known format.
	// Verification against it always fails.
	SchemeUnknown Scheme = iota

	// SchemeLegacySHA256 is the pre-migration scheme: hex-encoded SHA-256 of
	// the password concatenated with a fixed salt shared by every credential.
	// Kept only so existing accounts can log in; successful logins upgrade
	// the stored form to SchemeArgon2id.
	SchemeLegacySHA256

	// SchemeArgon2id is the current scheme: argon2id with a random
	// per-credential salt, stored in PHC string format.
	SchemeArgon2id
)

// String returns the scheme name for logs.
func (s Scheme) String() string {
	switch s {
	case SchemeLegacySHA256:
		return "legacy-sha256"
	case SchemeArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// Credential is a stored password credential together with its decoded scheme.
// The scheme is decoded exactly once here; all verification dispatches on it
// rather than re-sniffing string prefixes at call sites.
type Credential struct {
	Scheme  Scheme
	Encoded string
}

const argon2idPrefix = "$argon2id$"

// legacyHashLength is the length of a hex-encoded SHA-256 digest.
const legacyHashLength = 64

// ParseCredential decodes the scheme tag of a stored credential.
// Malformed input yields SchemeUnknown, never an error.
func ParseCredential(stored string) Credential {
	switch {
	case hasArgon2idTag(stored):
		return Credential{Scheme: SchemeArgon2id, Encoded: stored}
	case isLegacyDigest(stored):
		return Credential{Scheme: SchemeLegacySHA256, Encoded: stored}
	default:
		return Credential{Scheme: SchemeUnknown, Encoded: stored}
	}
}

func hasArgon2idTag(stored string) bool {
	return len(stored) > len(argon2idPrefix) && stored[:len(argon2idPrefix)] == argon2idPrefix
}

func isLegacyDigest(stored string) bool {
	if len(stored) != legacyHashLength {
		return false
	}
	for i := 0; i < len(stored); i++ {
		c := stored[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
