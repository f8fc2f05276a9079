package common

import "net/http"

// AppError carries a client-facing code and HTTP status alongside the cause.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.Message != "":
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WriteAppError renders e using the canonical error shape, defaulting to 400.
func WriteAppError(w http.ResponseWriter, e *AppError) {
	status := e.HTTPStatus
	if status == 0 {
		status = http.StatusBadRequest
	}
	code := e.Code
	if code == "" {
		code = "BAD_REQUEST"
	}
	JSONError(w, status, code, e.Message, e.Details)
}
