// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package student

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a requested student does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write collides with a unique constraint.
// Wrapping errors carry the offending field in their context. Uniqueness is
// enforced at the storage layer, never by pre-check queries, so concurrent
// registrations cannot race past the check.
var ErrDuplicate = errors.New("duplicate")

// Filter narrows admin list queries. Zero values mean "no restriction".
type Filter struct {
	// Search matches case-insensitive substrings of name, registration
	// number, roll number, and email.
	Search string

	// Section restricts to one section.
	Section string
}

// Repository manages student persistence.
type Repository interface {
	// Create stores a new student. Unique-constraint collisions return an
	// error wrapping ErrDuplicate.
	Create(ctx context.Context, s *Student) error

	// GetByID retrieves a student by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Student, error)

	// GetByRegistrationNumber retrieves a student by registration number.
	// Returns ErrNotFound if absent.
	GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*Student, error)

	// List retrieves students matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Student, error)

	// Update rewrites all mutable fields of an existing student.
	// Unique-constraint collisions return an error wrapping ErrDuplicate;
	// a missing row returns ErrNotFound.
	Update(ctx context.Context, s *Student) error

	// UpdatePasswordHash replaces only the stored credential.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Delete removes a student. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteMany removes a batch of students and returns how many rows went
	// away. Unknown ids are skipped, not errors.
	DeleteMany(ctx context.Context, ids []ulid.ULID) (int64, error)
}
