// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package postgres implements student persistence using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/regdesk/regdesk/internal/auth"
	"github.com/regdesk/regdesk/internal/student"
)

// DB is the subset of pgxpool.Pool the repository needs. Satisfied by both
// *pgxpool.Pool and pgxmock pools.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// constraintFields maps unique-constraint names to the user-facing field.
var constraintFields = map[string]string{
	"students_registration_number_key": "registration_number",
	"students_email_key":               "email",
	"students_phone_number_key":        "phone_number",
}

// StudentRepository implements student.Repository using PostgreSQL. It also
// serves as the auth credential store, resolving login identifiers to stored
// password hashes by registration number.
type StudentRepository struct {
	db DB
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_name, registration_number, roll_number, phone_number, email, section, password_hash, created_at, updated_at`

// Create stores a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		s.ID.String(),
		s.StudentName,
		s.RegistrationNumber,
		s.RollNumber,
		s.PhoneNumber,
		s.Email,
		s.Section,
		s.PasswordHash,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if dupErr := duplicateError(err); dupErr != nil {
			return dupErr
		}
		return oops.Code("STUDENT_CREATE_FAILED").
			With("operation", "insert student").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id ulid.ULID) (*student.Student, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE id = $1
	`, id.String())
	return scanStudent(row)
}

// GetByRegistrationNumber retrieves a student by registration number.
func (r *StudentRepository) GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*student.Student, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE registration_number = $1
	`, registrationNumber)
	return scanStudent(row)
}

// List retrieves students matching the filter, newest first.
func (r *StudentRepository) List(ctx context.Context, filter student.Filter) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`

	var (
		conds []string
		args  []any
	)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(student_name ILIKE $%d OR registration_number ILIKE $%d OR roll_number ILIKE $%d OR email ILIKE $%d)",
			n, n, n, n,
		))
	}
	if filter.Section != "" {
		args = append(args, filter.Section)
		conds = append(conds, fmt.Sprintf("section = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("STUDENT_LIST_FAILED").
			With("operation", "query students").
			Wrap(err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("STUDENT_LIST_FAILED").
			With("operation", "iterate rows").
			Wrap(err)
	}
	return students, nil
}

// Update rewrites all mutable fields of an existing student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	result, err := r.db.Exec(ctx, `
		UPDATE students
		SET student_name = $2,
		    registration_number = $3,
		    roll_number = $4,
		    phone_number = $5,
		    email = $6,
		    section = $7,
		    updated_at = $8
		WHERE id = $1
	`,
		s.ID.String(),
		s.StudentName,
		s.RegistrationNumber,
		s.RollNumber,
		s.PhoneNumber,
		s.Email,
		s.Section,
		s.UpdatedAt,
	)
	if err != nil {
		if dupErr := duplicateError(err); dupErr != nil {
			return dupErr
		}
		return oops.Code("STUDENT_UPDATE_FAILED").
			With("operation", "update student").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return student.ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces only the stored credential.
func (r *StudentRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE students SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("PASSWORD_HASH_UPDATE_FAILED").
			With("operation", "update password hash").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return student.ErrNotFound
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM students WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("STUDENT_DELETE_FAILED").
			With("operation", "delete student").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return student.ErrNotFound
	}
	return nil
}

// DeleteMany removes a batch of students, skipping unknown ids.
func (r *StudentRepository) DeleteMany(ctx context.Context, ids []ulid.ULID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	result, err := r.db.Exec(ctx, `
		DELETE FROM students WHERE id = ANY($1)
	`, raw)
	if err != nil {
		return 0, oops.Code("STUDENT_DELETE_MANY_FAILED").
			With("operation", "delete students").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// GetCredential resolves a login identifier (registration number) to the
// stored credential record. Returns auth.ErrNotFound for unknown identifiers.
func (r *StudentRepository) GetCredential(ctx context.Context, identifier string) (*auth.CredentialRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, student_name, password_hash
		FROM students
		WHERE registration_number = $1
	`, identifier)

	var record auth.CredentialRecord
	if err := row.Scan(&record.SubjectID, &record.DisplayName, &record.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get credential").
			Wrap(err)
	}
	return &record, nil
}

// UpdateCredentialHash rewrites the stored password hash for a subject. This
// is the write half of the transparent legacy-scheme migration on login.
func (r *StudentRepository) UpdateCredentialHash(ctx context.Context, subjectID, passwordHash string) error {
	id, err := ulid.Parse(subjectID)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "parse subject id").
			Wrap(err)
	}
	return r.UpdatePasswordHash(ctx, id, passwordHash)
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		rawID string
		s     student.Student
		c, u  time.Time
	)
	err := row.Scan(
		&rawID,
		&s.StudentName,
		&s.RegistrationNumber,
		&s.RollNumber,
		&s.PhoneNumber,
		&s.Email,
		&s.Section,
		&s.PasswordHash,
		&c,
		&u,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrNotFound
		}
		return nil, oops.Code("STUDENT_SCAN_FAILED").
			With("operation", "scan student row").
			Wrap(err)
	}
	id, err := ulid.Parse(rawID)
	if err != nil {
		return nil, oops.Code("STUDENT_SCAN_FAILED").
			With("operation", "parse student id").
			Wrap(err)
	}
	s.ID = id
	s.CreatedAt = c
	s.UpdatedAt = u
	return &s, nil
}

// duplicateError converts a postgres unique violation into a DUPLICATE error
// naming the colliding field, or returns nil if err is something else.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	field, ok := constraintFields[pgErr.ConstraintName]
	if !ok {
		field = pgErr.ConstraintName
	}
	return oops.Code("DUPLICATE").
		With("field", field).
		Wrap(student.ErrDuplicate)
}

// Compile-time interface checks.
var (
	_ student.Repository   = (*StudentRepository)(nil)
	_ auth.CredentialStore = (*StudentRepository)(nil)
)
