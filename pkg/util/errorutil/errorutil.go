package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Kind groups error codes by how callers should react to them.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindUnavailable  Kind = "UNAVAILABLE"
	KindInternal     Kind = "INTERNAL"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithCause attaches the underlying error.
func (e *DomainError) WithCause(err error) *DomainError {
	e.Err = err
	return e
}

var kindStatus = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindValidation:   http.StatusBadRequest,
	KindConflict:     http.StatusConflict,
	KindUnavailable:  http.StatusServiceUnavailable,
	KindInternal:     http.StatusInternalServerError,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New constructs a DomainError whose status is derived from kind.
func New(kind Kind, code, message string, details map[string]any) *DomainError {
	return &DomainError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: StatusForKind(kind),
		Details:    details,
	}
}

func NewValidationError(message string, details map[string]any) *DomainError {
	return New(KindValidation, CodeValidationFailed, message, details)
}

func NewNotFound(code, message string, details map[string]any) *DomainError {
	return New(KindNotFound, code, message, details)
}

func NewConflict(code, message string, details map[string]any) *DomainError {
	return New(KindConflict, code, message, details)
}

func NewUnavailable(code, message string, details map[string]any) *DomainError {
	return New(KindUnavailable, code, message, details)
}

func NewUnauthorized(message string) *DomainError {
	return New(KindUnauthorized, "UNAUTHORIZED", message, nil)
}

func NewForbidden(message string) *DomainError {
	return New(KindForbidden, "FORBIDDEN", message, nil)
}

// NewInternal wraps an unexpected failure under a stable code.
func NewInternal(code, message string, err error) *DomainError {
	de := New(KindInternal, code, message, nil)
	de.Err = err
	return de
}

func NewInternalError(err error) *DomainError {
	return NewInternal(CodeInternal, "internal server error", err)
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
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := KindInternal
		for k, status := range kindStatus {
			if status == fiberErr.Code {
				kind = k
				break
			}
		}
		de := New(kind, string(kind), fiberErr.Message, nil)
		de.HTTPStatus = fiberErr.Code
		return de
	}
	return NewInternalError(err)
}

// CodeOf returns the machine readable code carried by err, or "" when err is not a DomainError.
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
