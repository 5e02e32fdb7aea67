// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package auth provides authentication primitives for RegDesk: password
// hashing with dual-scheme support, opaque bearer session tokens, and the
// login/logout/session-validation service used by both the student portal
// and the admin console.
package auth
