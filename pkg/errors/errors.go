// Package errors carries the dismissal API's typed failures. Each error has a
// stable code that handlers surface in the response envelope and an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a coded failure raised by the queue, session, roster and change
// request services.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New declares a code. Services derive request-specific variants with Clone.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap keeps a storage or cache cause behind a coded error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	// ErrNotFound covers unknown schools, students, sessions, queue entries and
	// change requests.
	ErrNotFound = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	// ErrInvalidState rejects a queue entry move its current status does not
	// allow, and any change to a completed session.
	ErrInvalidState = New("INVALID_STATE", http.StatusConflict, "operation not allowed in current status")
	// ErrForbidden is a caller outside the school, or a parent acting on a
	// student they are not linked to.
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	// ErrConflict is a change request that was already reviewed.
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	// ErrCacheMiss never reaches a client; readers fall back to postgres.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Internal hides a storage failure behind a message safe to show staff.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Is matches on code so cloned variants still compare equal.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// FromError normalises err for the response envelope. Uncoded errors become
// INTERNAL_ERROR.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone copies err with a more specific message, e.g. "entry already dismissed".
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
