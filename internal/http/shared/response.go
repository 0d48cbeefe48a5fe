// Package shared holds response helpers used by every HTTP handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "caseflow/pkg/domain-errors"
)

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding failures are
// unrecoverable at this point; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to its HTTP status and writes the
// standard error body. Non-domain errors become a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:       string(dErrors.CodeInternal),
			Description: "internal server error",
		})
		return
	}
	WriteJSON(w, statusOf(domainErr.Code), ErrorResponse{
		Error:       string(domainErr.Code),
		Description: domainErr.Message,
	})
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeDuplicateID, dErrors.CodeVersionConflict, dErrors.CodeTerminalState:
		return http.StatusConflict
	case dErrors.CodeValidation, dErrors.CodeInvalidTransition, dErrors.CodeNotAutoAdvanceable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
