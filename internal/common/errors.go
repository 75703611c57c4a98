package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached HTTP status and a caller-facing message.
type AppError struct {
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(message string, status int, err error) *AppError {
	return &AppError{Message: message, HTTPStatus: status, Err: err}
}

// BadRequest constructs a 400 AppError with the given message.
func BadRequest(message string) *AppError {
	return &AppError{Message: message, HTTPStatus: http.StatusBadRequest}
}

// WriteError renders err using its AppError status and message when present,
// falling back to the supplied status and message otherwise.
func WriteError(w http.ResponseWriter, err error, fallbackStatus int, fallbackMessage string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = fallbackStatus
		}
		message := appErr.Message
		if message == "" {
			message = fallbackMessage
		}
		JSONError(w, status, message)
		return
	}
	JSONError(w, fallbackStatus, fallbackMessage)
}
