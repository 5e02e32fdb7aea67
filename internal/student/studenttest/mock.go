// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package studenttest provides in-memory test doubles for student interfaces.
package studenttest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/regdesk/regdesk/internal/auth"
	"github.com/regdesk/regdesk/internal/student"
)

// MemoryRepository is an in-memory student.Repository with the same
// uniqueness semantics as the postgres implementation. It also implements
// auth.CredentialStore, resolving identifiers by registration number, so a
// full auth + student service stack can run against it. Safe for concurrent
// use.
type MemoryRepository struct {
	mu       sync.Mutex
	students map[ulid.ULID]*student.Student

	// Error injection.
	CreateErr error
	UpdateErr error
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{students: make(map[ulid.ULID]*student.Student)}
}

// duplicateOf mirrors the postgres error shape: a DUPLICATE-coded error
// naming the colliding field, wrapping student.ErrDuplicate.
func (r *MemoryRepository) duplicateOf(s *student.Student) error {
	for id, existing := range r.students {
		if id == s.ID {
			continue
		}
		var field string
		switch {
		case existing.RegistrationNumber == s.RegistrationNumber:
			field = "registration_number"
		case existing.Email == s.Email:
			field = "email"
		case existing.PhoneNumber == s.PhoneNumber:
			field = "phone_number"
		default:
			continue
		}
		return oops.Code("DUPLICATE").With("field", field).Wrap(student.ErrDuplicate)
	}
	return nil
}

// Create stores a new student.
func (r *MemoryRepository) Create(_ context.Context, s *student.Student) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.duplicateOf(s); err != nil {
		return err
	}
	copied := *s
	r.students[s.ID] = &copied
	return nil
}

// GetByID retrieves a student by ID.
func (r *MemoryRepository) GetByID(_ context.Context, id ulid.ULID) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, student.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

// GetByRegistrationNumber retrieves a student by registration number.
func (r *MemoryRepository) GetByRegistrationNumber(_ context.Context, registrationNumber string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.RegistrationNumber == registrationNumber {
			copied := *s
			return &copied, nil
		}
	}
	return nil, student.ErrNotFound
}

// List retrieves students matching the filter, newest first.
func (r *MemoryRepository) List(_ context.Context, filter student.Filter) ([]*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*student.Student
	for _, s := range r.students {
		if filter.Section != "" && s.Section != filter.Section {
			continue
		}
		if filter.Search != "" && !matches(s, filter.Search) {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matches(s *student.Student, search string) bool {
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(s.StudentName), q) ||
		strings.Contains(strings.ToLower(s.RegistrationNumber), q) ||
		strings.Contains(strings.ToLower(s.RollNumber), q) ||
		strings.Contains(strings.ToLower(s.Email), q)
}

// Update rewrites the mutable fields of an existing student.
func (r *MemoryRepository) Update(_ context.Context, s *student.Student) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.students[s.ID]
	if !ok {
		return student.ErrNotFound
	}
	if err := r.duplicateOf(s); err != nil {
		return err
	}
	copied := *s
	copied.PasswordHash = existing.PasswordHash
	r.students[s.ID] = &copied
	return nil
}

// UpdatePasswordHash replaces only the stored credential.
func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return student.ErrNotFound
	}
	s.PasswordHash = passwordHash
	return nil
}

// Delete removes a student.
func (r *MemoryRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(r.students, id)
	return nil
}

// DeleteMany removes a batch of students, skipping unknown ids.
func (r *MemoryRepository) DeleteMany(_ context.Context, ids []ulid.ULID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, id := range ids {
		if _, ok := r.students[id]; ok {
			delete(r.students, id)
			count++
		}
	}
	return count, nil
}

// GetCredential resolves a registration number to a credential record.
func (r *MemoryRepository) GetCredential(_ context.Context, identifier string) (*auth.CredentialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.RegistrationNumber == identifier {
			return &auth.CredentialRecord{
				SubjectID:    s.ID.String(),
				DisplayName:  s.StudentName,
				PasswordHash: s.PasswordHash,
			}, nil
		}
	}
	return nil, auth.ErrNotFound
}

// UpdateCredentialHash rewrites the stored password hash for a subject id.
func (r *MemoryRepository) UpdateCredentialHash(ctx context.Context, subjectID, passwordHash string) error {
	id, err := ulid.Parse(subjectID)
	if err != nil {
		return student.ErrNotFound
	}
	return r.UpdatePasswordHash(ctx, id, passwordHash)
}

// Count returns the number of stored students.
func (r *MemoryRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.students)
}

// Compile-time interface checks.
var (
	_ student.Repository   = (*MemoryRepository)(nil)
	_ auth.CredentialStore = (*MemoryRepository)(nil)
)
