// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RegDesk Contributors

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusForCode maps internal error codes to HTTP status codes. Unlisted
// codes are internal failures and collapse to a generic 500 so storage and
// programming details never reach clients.
func statusForCode(code string) int {
	switch code {
	case "VALIDATION", "CONFIG_INVALID":
		return http.StatusBadRequest
	case "DUPLICATE":
		return http.StatusConflict
	case "AUTH_INVALID_CREDENTIALS", "AUTH_UNAUTHORIZED":
		return http.StatusUnauthorized
	case "NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError maps err to an HTTP status and writes the error body. 5xx
// responses get a fixed message; the real error is logged server-side only.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := "INTERNAL"
	message := err.Error()
	var field string

	// OopsError.Code() is typed any; only string codes participate in the
	// status mapping.
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		if c, ok := oopsErr.Code().(string); ok && c != "" {
			code = c
		}
		if f, ok := oopsErr.Context()["field"].(string); ok {
			field = f
		}
	}

	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "error", err)
		code = "INTERNAL"
		message = "internal error"
		field = ""
	}

	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: message,
		Field:   field,
	}})
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return oops.Code("VALIDATION").Errorf("malformed request body")
	}
	return nil
}
