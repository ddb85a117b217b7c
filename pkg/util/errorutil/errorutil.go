package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewTimeout(message string) error {
	return NewDomainError("TIMEOUT", message, http.StatusGatewayTimeout, nil)
}

func NewBackendUnavailable(err error) error {
	return &DomainError{
		Code:       "BACKEND_UNAVAILABLE",
		Message:    "backend unavailable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromResponse classifies a non-2xx backend response.
func FromResponse(op string, status int) *DomainError {
	switch {
	case status == http.StatusUnauthorized:
		return NewDomainError("UNAUTHORIZED", op+": not authenticated", status, nil)
	case status == http.StatusForbidden:
		return NewDomainError("FORBIDDEN", op+": access denied", status, nil)
	case status == http.StatusNotFound:
		return NewDomainError("NOT_FOUND", op+": resource not found", status, nil)
	case status >= 500:
		return NewDomainError("BACKEND_ERROR", op+": backend failure", status, nil)
	default:
		return NewDomainError("REQUEST_FAILED", fmt.Sprintf("%s: request rejected (%d)", op, status), status, nil)
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if de, ok := NewTimeout("request timed out").(*DomainError); ok {
			de.Err = err
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsUnauthorized reports whether err represents a 401 from the backend.
func IsUnauthorized(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus == http.StatusUnauthorized
	}
	return false
}

// IsNotFound reports whether err represents a 404 from the backend.
func IsNotFound(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus == http.StatusNotFound
	}
	return false
}
