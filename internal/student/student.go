// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package student holds the student record model and the portal operations
// on it: self-service registration and profile management, and the admin
// console's list/search/edit/delete/export surface.
package student

import (
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Sections lists the class sections a student can register under.
var Sections = []string{"A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10"}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// emailRegex accepts the usual local@domain.tld shape. Deliberately loose;
// the storage-level unique constraint is what actually matters.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// phoneRegex accepts digits with an optional leading +, 7 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Student is a registered student record. PasswordHash never leaves the
// service layer; transport encodings must exclude it.
type Student struct {
	ID                 ulid.ULID
	StudentName        string
	RegistrationNumber string
	RollNumber         string
	PhoneNumber        string
	Email              string
	Section            string
	PasswordHash       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RegisterInput carries the fields a student submits at registration.
type RegisterInput struct {
	StudentName        string
	RegistrationNumber string
	RollNumber         string
	PhoneNumber        string
	Email              string
	Section            string
	Password           string
}

// Normalize trims surrounding whitespace from every field except the password.
func (in *RegisterInput) Normalize() {
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.RegistrationNumber = strings.TrimSpace(in.RegistrationNumber)
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Email = strings.TrimSpace(in.Email)
	in.Section = strings.TrimSpace(in.Section)
}

// Validate checks all registration fields. Returns a VALIDATION error naming
// the first offending field.
func (in *RegisterInput) Validate() error {
	if in.StudentName == "" {
		return validationError("student_name", "student name is required")
	}
	if in.RegistrationNumber == "" {
		return validationError("registration_number", "registration number is required")
	}
	if in.RollNumber == "" {
		return validationError("roll_number", "roll number is required")
	}
	if err := ValidatePhoneNumber(in.PhoneNumber); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidateSection(in.Section); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// ValidateEmail checks that email looks like an address.
func ValidateEmail(email string) error {
	if email == "" {
		return validationError("email", "email is required")
	}
	if !emailRegex.MatchString(email) {
		return validationError("email", "email is not a valid address")
	}
	return nil
}

// ValidatePhoneNumber checks that phone is a plausible phone number.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return validationError("phone_number", "phone number is required")
	}
	if !phoneRegex.MatchString(phone) {
		return validationError("phone_number", "phone number must be 7-15 digits")
	}
	return nil
}

// ValidateSection checks that section is one of the known sections.
func ValidateSection(section string) error {
	if section == "" {
		return validationError("section", "section is required")
	}
	for _, s := range Sections {
		if s == section {
			return nil
		}
	}
	return validationError("section", "unknown section")
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("VALIDATION").
			With("field", "password").
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func validationError(field, msg string) error {
	return oops.Code("VALIDATION").With("field", field).Errorf("%s", msg)
}
