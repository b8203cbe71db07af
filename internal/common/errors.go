package common

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error that carries its own HTTP rendering.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err == nil:
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails returns a copy of e carrying details.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}
	out := *e
	out.Details = details
	return &out
}

// NewAppError wraps err with a code and status.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

// ValidationError is a 400 with per-field details.
func ValidationError(message string, details any) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

// IsAppError reports whether err renders itself.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// WriteAppError renders err when it is an AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	JSONError(w, cmp.Or(appErr.Status, http.StatusBadRequest), cmp.Or(appErr.Code, "BAD_REQUEST"), appErr.Message, appErr.Details)
	return true
}
