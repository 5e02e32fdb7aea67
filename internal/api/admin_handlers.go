// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/regdesk/regdesk/internal/observability"
	"github.com/regdesk/regdesk/internal/student"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	token, err := s.auth.AdminLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		observability.RecordLogin("admin", "failure")
		writeError(w, s.logger, err)
		return
	}
	observability.RecordLogin("admin", "success")

	writeJSON(w, http.StatusOK, adminLoginResponse{Token: token})
}

func listFilter(r *http.Request) student.Filter {
	return student.Filter{
		Search:  r.URL.Query().Get("search"),
		Section: r.URL.Query().Get("section"),
	}
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	records, err := s.students.ListStudents(r.Context(), bearerToken(r), listFilter(r))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	out := make([]studentResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toStudentResponse(record))
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": out})
}

type adminUpdateRequest struct {
	StudentName        string `json:"student_name"`
	RegistrationNumber string `json:"registration_number"`
	RollNumber         string `json:"roll_number"`
	PhoneNumber        string `json:"phone_number"`
	Email              string `json:"email"`
	Section            string `json:"section"`
	NewPassword        string `json:"new_password"`
}

func (s *Server) handleAdminUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req adminUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	record, err := s.students.AdminUpdateStudent(r.Context(), bearerToken(r), id, student.AdminUpdate{
		StudentName:        req.StudentName,
		RegistrationNumber: req.RegistrationNumber,
		RollNumber:         req.RollNumber,
		PhoneNumber:        req.PhoneNumber,
		Email:              req.Email,
		Section:            req.Section,
		NewPassword:        req.NewPassword,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(record))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.students.DeleteStudent(r.Context(), bearerToken(r), id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type bulkDeleteRequest struct {
	StudentIDs []string `json:"student_ids"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	deleted, err := s.students.DeleteStudents(r.Context(), bearerToken(r), req.StudentIDs)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)

	// Authorization and the list query both run before the first CSV byte is
	// written, so the error path can still switch back to a JSON response.
	if err := s.students.ExportCSV(r.Context(), bearerToken(r), listFilter(r), w); err != nil {
		w.Header().Del("Content-Disposition")
		w.Header().Set("Content-Type", "application/json")
		writeError(w, s.logger, err)
		return
	}
}
