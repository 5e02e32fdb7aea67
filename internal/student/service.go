// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package student

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/regdesk/regdesk/internal/auth"
	"github.com/regdesk/regdesk/pkg/errutil"
)

// SessionGuard authorizes operations against live sessions. Every
// data-touching method below goes through it before reaching storage, and
// acts on the subject the guard derived from the token, never on a
// client-asserted identity.
type SessionGuard interface {
	// RequireStudent validates a token bound to exactly this student.
	RequireStudent(ctx context.Context, token, studentID string) (auth.Subject, error)

	// RequireAdmin validates a token bound to the admin identity.
	RequireAdmin(ctx context.Context, token string) (auth.Subject, error)
}

// SessionRevoker destroys all sessions for a subject.
type SessionRevoker interface {
	RevokeSubject(ctx context.Context, subject auth.Subject) error
}

// ProfileUpdate carries the fields a student may change on their own record.
// Empty fields are left unchanged. Anything outside this allow-list
// (name, registration number, roll number, section) is admin-only.
type ProfileUpdate struct {
	PhoneNumber string
	Email       string
	Password    string
}

// AdminUpdate carries the fields an administrator may change on any record.
// Empty fields are left unchanged.
type AdminUpdate struct {
	StudentName        string
	RegistrationNumber string
	RollNumber         string
	PhoneNumber        string
	Email              string
	Section            string
	NewPassword        string
}

// Service implements the portal's student operations.
type Service struct {
	repo    Repository
	hasher  auth.PasswordHasher
	guard   SessionGuard
	revoker SessionRevoker
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new student Service.
func NewService(repo Repository, hasher auth.PasswordHasher, guard SessionGuard, revoker SessionRevoker, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("student repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if guard == nil {
		return nil, oops.Errorf("session guard is required")
	}
	if revoker == nil {
		return nil, oops.Errorf("session revoker is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		repo:    repo,
		hasher:  hasher,
		guard:   guard,
		revoker: revoker,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Register validates the input, hashes the password under the current
// scheme, and stores the new student. Uniqueness collisions surface as
// DUPLICATE errors from the storage-level constraints.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Student, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := s.now()
	record := &Student{
		ID:                 ulid.Make(),
		StudentName:        input.StudentName,
		RegistrationNumber: input.RegistrationNumber,
		RollNumber:         input.RollNumber,
		PhoneNumber:        input.PhoneNumber,
		Email:              input.Email,
		Section:            input.Section,
		PasswordHash:       passwordHash,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "insert student").
			Wrap(err)
	}

	s.logger.Info("student registered",
		"student_id", record.ID.String(),
		"registration_number", record.RegistrationNumber,
	)

	return record, nil
}

// GetProfile returns the student's own record. The token must belong to a
// live session for exactly this student.
func (s *Service) GetProfile(ctx context.Context, token, studentID string) (*Student, error) {
	subject, err := s.guard.RequireStudent(ctx, token, studentID)
	if err != nil {
		return nil, err
	}
	return s.getBySubject(ctx, subject)
}

// UpdateProfile applies the self-service allow-list (contact info and
// password) to the student's own record.
func (s *Service) UpdateProfile(ctx context.Context, token, studentID string, updates ProfileUpdate) (*Student, error) {
	subject, err := s.guard.RequireStudent(ctx, token, studentID)
	if err != nil {
		return nil, err
	}

	record, err := s.getBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}

	changed := false
	if updates.PhoneNumber != "" {
		if err := ValidatePhoneNumber(updates.PhoneNumber); err != nil {
			return nil, err
		}
		record.PhoneNumber = updates.PhoneNumber
		changed = true
	}
	if updates.Email != "" {
		if err := ValidateEmail(updates.Email); err != nil {
			return nil, err
		}
		record.Email = updates.Email
		changed = true
	}

	passwordChanged := updates.Password != ""
	if passwordChanged {
		if err := ValidatePassword(updates.Password); err != nil {
			return nil, err
		}
	}

	if !changed && !passwordChanged {
		return nil, oops.Code("VALIDATION").Errorf("no valid fields to update")
	}

	if changed {
		record.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, record); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return nil, err
			}
			return nil, oops.Code("PROFILE_UPDATE_FAILED").
				With("student_id", record.ID.String()).
				Wrap(err)
		}
	}

	if passwordChanged {
		if err := s.updatePassword(ctx, record.ID, updates.Password); err != nil {
			return nil, err
		}
	}

	s.logger.Info("student updated own profile", "student_id", record.ID.String())

	return record, nil
}

// ListStudents returns all students matching the filter. Admin only.
func (s *Service) ListStudents(ctx context.Context, token string, filter Filter) ([]*Student, error) {
	if _, err := s.guard.RequireAdmin(ctx, token); err != nil {
		return nil, err
	}

	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, oops.Code("LIST_FAILED").Wrap(err)
	}
	return students, nil
}

// AdminUpdateStudent applies any subset of fields to any record. Admin only.
func (s *Service) AdminUpdateStudent(ctx context.Context, token, studentID string, updates AdminUpdate) (*Student, error) {
	if _, err := s.guard.RequireAdmin(ctx, token); err != nil {
		return nil, err
	}

	id, err := parseStudentID(studentID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err, studentID)
	}

	if updates.StudentName != "" {
		record.StudentName = updates.StudentName
	}
	if updates.RegistrationNumber != "" {
		record.RegistrationNumber = updates.RegistrationNumber
	}
	if updates.RollNumber != "" {
		record.RollNumber = updates.RollNumber
	}
	if updates.PhoneNumber != "" {
		if err := ValidatePhoneNumber(updates.PhoneNumber); err != nil {
			return nil, err
		}
		record.PhoneNumber = updates.PhoneNumber
	}
	if updates.Email != "" {
		if err := ValidateEmail(updates.Email); err != nil {
			return nil, err
		}
		record.Email = updates.Email
	}
	if updates.Section != "" {
		if err := ValidateSection(updates.Section); err != nil {
			return nil, err
		}
		record.Section = updates.Section
	}

	record.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, oops.Code("ADMIN_UPDATE_FAILED").
			With("student_id", studentID).
			Wrap(err)
	}

	if updates.NewPassword != "" {
		if err := ValidatePassword(updates.NewPassword); err != nil {
			return nil, err
		}
		if err := s.updatePassword(ctx, record.ID, updates.NewPassword); err != nil {
			return nil, err
		}
	}

	s.logger.Info("admin updated student", "student_id", studentID)

	return record, nil
}

// DeleteStudent removes one student and revokes their sessions. Admin only.
func (s *Service) DeleteStudent(ctx context.Context, token, studentID string) error {
	if _, err := s.guard.RequireAdmin(ctx, token); err != nil {
		return err
	}

	id, err := parseStudentID(studentID)
	if err != nil {
		return err
	}

	// Revoke sessions first so a half-failed delete can't leave a live
	// token pointing at a record scheduled for removal.
	if err := s.revoker.RevokeSubject(ctx, auth.StudentSubject(id.String())); err != nil {
		errutil.LogWarn(s.logger, "failed to revoke sessions for deleted student", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrapLookup(err, studentID)
	}

	s.logger.Info("admin deleted student", "student_id", studentID)
	return nil
}

// DeleteStudents removes a batch of students and revokes their sessions.
// Unknown ids are skipped. Admin only.
func (s *Service) DeleteStudents(ctx context.Context, token string, studentIDs []string) (int64, error) {
	if _, err := s.guard.RequireAdmin(ctx, token); err != nil {
		return 0, err
	}
	if len(studentIDs) == 0 {
		return 0, oops.Code("VALIDATION").Errorf("no student ids supplied")
	}

	ids := make([]ulid.ULID, 0, len(studentIDs))
	for _, raw := range studentIDs {
		id, err := parseStudentID(raw)
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		if err := s.revoker.RevokeSubject(ctx, auth.StudentSubject(id.String())); err != nil {
			errutil.LogWarn(s.logger, "failed to revoke sessions for deleted student", err)
		}
	}

	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, oops.Code("BULK_DELETE_FAILED").Wrap(err)
	}

	s.logger.Info("admin bulk-deleted students", "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// ExportCSV writes every matching student as Excel-compatible CSV,
// credentials excluded. Admin only.
func (s *Service) ExportCSV(ctx context.Context, token string, filter Filter, w io.Writer) error {
	students, err := s.ListStudents(ctx, token, filter)
	if err != nil {
		return err
	}
	if err := WriteCSV(w, students); err != nil {
		return oops.Code("EXPORT_FAILED").Wrap(err)
	}
	return nil
}

func (s *Service) getBySubject(ctx context.Context, subject auth.Subject) (*Student, error) {
	id, err := parseStudentID(subject.ID)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err, subject.ID)
	}
	return record, nil
}

func (s *Service) updatePassword(ctx context.Context, id ulid.ULID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("PASSWORD_UPDATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return oops.Code("PASSWORD_UPDATE_FAILED").
			With("student_id", id.String()).
			Wrap(err)
	}
	return nil
}

func (s *Service) wrapLookup(err error, studentID string) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code("NOT_FOUND").
			With("student_id", studentID).
			Errorf("student not found")
	}
	return oops.Code("STUDENT_LOOKUP_FAILED").
		With("student_id", studentID).
		Wrap(err)
}

func parseStudentID(raw string) (ulid.ULID, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("VALIDATION").
			With("field", "student_id").
			Errorf("malformed student id")
	}
	return id, nil
}
