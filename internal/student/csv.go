// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package student

import (
	"encoding/csv"
	"io"
	"time"
)

// csvHeader is the export column order. Credentials are deliberately absent.
var csvHeader = []string{
	"Student Name",
	"Registration Number",
	"Roll Number",
	"Phone Number",
	"Email",
	"Section",
	"Created At",
}

// WriteCSV writes the students as CSV with a header row. Password hashes and
// internal ids never appear in the output.
func WriteCSV(w io.Writer, students []*Student) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range students {
		record := []string{
			s.StudentName,
			s.RegistrationNumber,
			s.RollNumber,
			s.PhoneNumber,
			s.Email,
			s.Section,
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
