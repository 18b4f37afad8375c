package transport

import (
	"errors"
	"fmt"
	"net/http"

	"instasplit/persistence"
	"instasplit/splitting"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

type InvalidMethodError struct {
	Method string `json:"method"`
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("Invalid method: %s", e.Method)
}

func NewInvalidMethodError(method string) *InvalidMethodError {
	return &InvalidMethodError{
		Method: method,
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses: missing records become
// 404, bad split input becomes 400, anything else 500.
func (t *Transport) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *ValidationError
	var methodErr *InvalidMethodError
	var refErr *splitting.InvalidReferenceError
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, splitting.ErrEmptyGroup), errors.As(err, &refErr), errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &methodErr):
		status = http.StatusMethodNotAllowed
	}

	if status == http.StatusInternalServerError {
		t.log.Error("request failed", "error", err)
	}
	t.writeJSON(w, status, errorBody{Error: err.Error()})
}
