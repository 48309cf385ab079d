// Package apierror provides the error taxonomy used across services and the
// standardized error envelope returned to API clients. All errors surfaced to
// clients go through this package so internal details (stack traces, SQL,
// upstream payloads) never leak.
package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindValidation  Kind = "validation"   // bad input shape or illegal state transition
	KindNotFound    Kind = "not_found"    // referenced entity absent
	KindDatabase    Kind = "database"     // persistence failure, wraps the underlying cause
	KindExternalAPI Kind = "external_api" // gateway non-success or malformed response
	KindStuckSync   Kind = "stuck_sync"   // internal marker used by the stuck-run sweep
)

// Error is the typed error carried between layers.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports bad input or an illegal state transition.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an absent entity.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Database wraps a persistence failure.
func Database(msg string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: msg, Err: err}
}

// ExternalAPI wraps a gateway failure (non-success response or malformed payload).
func ExternalAPI(msg string, err error) *Error {
	return &Error{Kind: KindExternalAPI, Message: msg, Err: err}
}

// StuckSync marks a run reclaimed by the sweep. Never surfaced to API callers.
func StuckSync(msg string) *Error {
	return &Error{Kind: KindStuckSync, Message: msg}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation-class failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// ── HTTP envelope ────────────────────────────────────────────────────────────

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
