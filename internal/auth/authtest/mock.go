// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package authtest provides in-memory test doubles for auth interfaces.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/regdesk/regdesk/internal/auth"
)

// MemorySessionRepository is a SessionRepository backed by a map, keyed by
// token hash. Safe for concurrent use.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]auth.Session

	// Error injection. When set, the corresponding method returns the error
	// instead of touching state.
	ReplaceErr error
	GetErr     error
	DeleteErr  error
}

// NewMemorySessionRepository creates an empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]auth.Session)}
}

// Replace removes every session for the subject, then inserts the new one.
func (r *MemorySessionRepository) Replace(_ context.Context, session *auth.Session) error {
	if r.ReplaceErr != nil {
		return r.ReplaceErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, existing := range r.sessions {
		if existing.Subject == session.Subject {
			delete(r.sessions, hash)
		}
	}
	r.sessions[session.TokenHash] = *session
	return nil
}

// GetByTokenHash retrieves a session by token hash.
func (r *MemorySessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &session, nil
}

// DeleteByTokenHash removes a session; unknown hashes are a no-op.
func (r *MemorySessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenHash)
	return nil
}

// DeleteBySubject removes all sessions for a subject.
func (r *MemorySessionRepository) DeleteBySubject(_ context.Context, subject auth.Subject) error {
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, existing := range r.sessions {
		if existing.Subject == subject {
			delete(r.sessions, hash)
		}
	}
	return nil
}

// DeleteExpired removes sessions expired at now and returns the count.
func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for hash, existing := range r.sessions {
		if existing.IsExpiredAt(now) {
			delete(r.sessions, hash)
			count++
		}
	}
	return count, nil
}

// Count returns the number of stored sessions.
func (r *MemorySessionRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CountBySubject returns the number of stored sessions for a subject.
func (r *MemorySessionRepository) CountBySubject(subject auth.Subject) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, existing := range r.sessions {
		if existing.Subject == subject {
			n++
		}
	}
	return n
}

// ExpireAll rewinds every stored session's expiry to the given time.
func (r *MemorySessionRepository) ExpireAll(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, existing := range r.sessions {
		existing.ExpiresAt = at
		r.sessions[hash] = existing
	}
}

// MemoryCredentialStore is a CredentialStore backed by maps. Safe for
// concurrent use.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	records map[string]*auth.CredentialRecord // identifier -> record

	// Error injection.
	GetErr    error
	UpdateErr error
}

// NewMemoryCredentialStore creates an empty MemoryCredentialStore.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{records: make(map[string]*auth.CredentialRecord)}
}

// Put stores a credential record under an identifier.
func (s *MemoryCredentialStore) Put(identifier string, record auth.CredentialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identifier] = &record
}

// GetCredential retrieves the credential record for an identifier.
func (s *MemoryCredentialStore) GetCredential(_ context.Context, identifier string) (*auth.CredentialRecord, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identifier]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// UpdateCredentialHash replaces the stored hash for a subject id.
func (s *MemoryCredentialStore) UpdateCredentialHash(_ context.Context, subjectID, passwordHash string) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.SubjectID == subjectID {
			record.PasswordHash = passwordHash
			return nil
		}
	}
	return auth.ErrNotFound
}

// StoredHash returns the hash currently stored for an identifier.
func (s *MemoryCredentialStore) StoredHash(identifier string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[identifier]; ok {
		return record.PasswordHash
	}
	return ""
}

// Verify interfaces are satisfied.
var (
	_ auth.SessionRepository = (*MemorySessionRepository)(nil)
	_ auth.CredentialStore   = (*MemoryCredentialStore)(nil)
)
