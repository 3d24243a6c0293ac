package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a ctrack error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFetchFailed    ErrorCode = "FETCH_FAILED"    // 502
	ErrStoreFailed    ErrorCode = "STORE_FAILED"    // 503
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// CtrackError represents a structured error with code, status, and details.
type CtrackError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *CtrackError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CtrackError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CtrackError {
	return &CtrackError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a page that has no visit record.
func NewNotFound(pageKey string) *CtrackError {
	return &CtrackError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("no visit recorded for %s", pageKey),
		Details: map[string]any{"page_key": pageKey},
	}
}

// NewFetchFailed creates a 502 error when a page could not be retrieved.
func NewFetchFailed(url string, err error) *CtrackError {
	msg := "fetch failed"
	if err != nil {
		msg = err.Error()
	}
	return &CtrackError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: fmt.Sprintf("fetch %s: %s", url, msg),
		Details: map[string]any{"url": url},
		cause:   err,
	}
}

// NewStoreFailed creates a 503 error when the visit blob could not be written.
func NewStoreFailed(err error) *CtrackError {
	msg := "store unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &CtrackError{
		Code:    ErrStoreFailed,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CtrackError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CtrackError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a CtrackError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CtrackError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
