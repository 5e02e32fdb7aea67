// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/regdesk/regdesk/internal/observability"
	"github.com/regdesk/regdesk/internal/student"
)

// studentResponse is the transport shape of a student record. The stored
// credential is deliberately not part of it.
type studentResponse struct {
	ID                 string    `json:"id"`
	StudentName        string    `json:"student_name"`
	RegistrationNumber string    `json:"registration_number"`
	RollNumber         string    `json:"roll_number"`
	PhoneNumber        string    `json:"phone_number"`
	Email              string    `json:"email"`
	Section            string    `json:"section"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toStudentResponse(s *student.Student) studentResponse {
	return studentResponse{
		ID:                 s.ID.String(),
		StudentName:        s.StudentName,
		RegistrationNumber: s.RegistrationNumber,
		RollNumber:         s.RollNumber,
		PhoneNumber:        s.PhoneNumber,
		Email:              s.Email,
		Section:            s.Section,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

type registerRequest struct {
	StudentName        string `json:"student_name"`
	RegistrationNumber string `json:"registration_number"`
	RollNumber         string `json:"roll_number"`
	PhoneNumber        string `json:"phone_number"`
	Email              string `json:"email"`
	Section            string `json:"section"`
	Password           string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	record, err := s.students.Register(r.Context(), student.RegisterInput{
		StudentName:        req.StudentName,
		RegistrationNumber: req.RegistrationNumber,
		RollNumber:         req.RollNumber,
		PhoneNumber:        req.PhoneNumber,
		Email:              req.Email,
		Section:            req.Section,
		Password:           req.Password,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentResponse(record))
}

type loginRequest struct {
	RegistrationNumber string `json:"registration_number"`
	Password           string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
}

func (s *Server) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	result, err := s.auth.Login(r.Context(), req.RegistrationNumber, req.Password)
	if err != nil {
		observability.RecordLogin("student", "failure")
		writeError(w, s.logger, err)
		return
	}
	observability.RecordLogin("student", "success")

	writeJSON(w, http.StatusOK, loginResponse{
		Token:       result.Token,
		StudentID:   result.SubjectID,
		StudentName: result.DisplayName,
	})
}

// handleLogout serves both student and admin logout. Logout always succeeds;
// an unknown or already-destroyed token is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := s.students.GetProfile(r.Context(), bearerToken(r), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(record))
}

type updateProfileRequest struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	record, err := s.students.UpdateProfile(r.Context(), bearerToken(r), id, student.ProfileUpdate{
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(record))
}
