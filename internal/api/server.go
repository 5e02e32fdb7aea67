// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

// Package api exposes the portal over HTTP: student self-service routes and
// the admin console routes, all JSON, authenticated with bearer tokens.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/regdesk/regdesk/internal/auth"
	"github.com/regdesk/regdesk/internal/observability"
	"github.com/regdesk/regdesk/internal/student"
)

// Server is the portal HTTP server.
type Server struct {
	auth     *auth.Service
	students *student.Service
	logger   *slog.Logger
	metrics  *observability.Metrics

	httpServer *http.Server
}

// NewServer creates a Server listening on addr. metrics may be nil.
func NewServer(addr string, authSvc *auth.Service, students *student.Service, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		auth:     authSvc,
		students: students,
		logger:   logger,
		metrics:  metrics,
	}

	r := mux.NewRouter()
	s.registerRoutes(r)
	r.Use(s.logRequests)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(r *mux.Router) {
	// Student self-service.
	r.HandleFunc("/api/student/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/student/login", s.handleStudentLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/student/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/students/{id}", s.handleGetProfile).Methods(http.MethodGet)
	r.HandleFunc("/api/students/{id}", s.handleUpdateProfile).Methods(http.MethodPatch)

	// Admin console.
	r.HandleFunc("/api/admin/login", s.handleAdminLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/students", s.handleListStudents).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/students/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/students/bulk-delete", s.handleBulkDelete).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/students/{id}", s.handleAdminUpdateStudent).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/students/{id}", s.handleDeleteStudent).Methods(http.MethodDelete)
}

// Handler returns the configured HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and returns a channel that receives the terminal
// error from the listener.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.
				WithLabelValues(route, strconv.Itoa(rec.status)).
				Inc()
		}

		s.logger.Info("http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// bearerToken extracts the bearer token from the Authorization header.
// Returns "" when the header is missing or not a bearer scheme; downstream
// session validation treats that as unauthorized.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return header[len(prefix):]
}
