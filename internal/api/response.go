package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tmht/attendance-api/internal/attendance"
	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
	"github.com/tmht/attendance-api/internal/logger"
)

// Response represents a standard API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"` // field -> failed rule
}

// Error codes returned in ErrorInfo.Code.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeNoMatchingColumn = "NO_MATCHING_COLUMN"
	CodeIncompleteData   = "INCOMPLETE_DATA"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL_ERROR"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// WriteCreated writes a 201 Created response.
func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, status int, message string, code ...string) error {
	errInfo := ErrorInfo{
		Message: message,
	}
	if len(code) > 0 {
		errInfo.Code = code[0]
	}

	return WriteJSON(w, status, Response{
		Success: false,
		Error:   &errInfo,
	})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message, CodeBadRequest)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message, CodeInternal)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

// WriteValidationError writes a 400 response listing each failed field.
// Errors that are not validator.ValidationErrors become a plain bad request.
func WriteValidationError(w http.ResponseWriter, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return WriteBadRequest(w, "Invalid input")
	}

	details := make(map[string]string, len(ve))
	for _, fieldErr := range ve {
		details[fieldErr.Field()] = fieldErr.Tag()
	}

	return WriteJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error: &ErrorInfo{
			Message: "Validation failed",
			Code:    CodeValidationFailed,
			Details: details,
		},
	})
}

// WriteDomainError maps an error from the store or the engine to its HTTP
// status. Unknown errors are logged and reported as 500 without detail.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return WriteNotFound(w, err.Error())
	case errors.Is(err, database.ErrDuplicate):
		return WriteError(w, http.StatusConflict, err.Error(), CodeConflict)
	case errors.Is(err, calendar.ErrNoMatchingColumn):
		return WriteError(w, http.StatusUnprocessableEntity, err.Error(), CodeNoMatchingColumn)
	case errors.Is(err, attendance.ErrIncompleteData):
		return WriteError(w, http.StatusConflict, err.Error(), CodeIncompleteData)
	case errors.Is(err, calendar.ErrInvalidArgument), errors.Is(err, attendance.ErrEmptyName):
		return WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidArgument)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return WriteValidationError(w, err)
	}

	logger.Error(r.Context(), "request failed", err)
	return WriteInternalError(w, "Internal server error")
}
