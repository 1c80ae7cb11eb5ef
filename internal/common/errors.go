package common

import "errors"

// Error codes shared across the terminal API surface.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
	CodeCatalogLoadFailed  = "CATALOG_LOAD_FAILED"
	CodeCatalogNotReady    = "CATALOG_NOT_READY"
	CodeComboUnconfigured  = "COMBO_UNCONFIGURED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeReplacementInvalid = "REPLACEMENT_INVALID"
	CodeSubmissionFailed   = "SUBMISSION_FAILED"
	CodeSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	CodeMesaConflict       = "MESA_CONFLICT"
)

// AppError represents an error with an attached code and HTTP status.
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
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError extracts an AppError from the chain if present.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
