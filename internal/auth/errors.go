// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned by a UserRepository when a write violates a
// uniqueness constraint. Use errors.As with *ConflictError to learn which
// field collided.
var ErrConflict = errors.New("conflict")

// ConflictError names the field whose uniqueness constraint was violated.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already taken", e.Field)
}

// Is reports ErrConflict so callers can match either form.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Kind classifies a credential-service failure.
type Kind string

// Failure kinds surfaced by Service and the gate.
const (
	KindValidation         Kind = "VALIDATION_FAILED"
	KindConflict           Kind = "CONFLICT"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindNotFound           Kind = "NOT_FOUND"
	KindTokenInvalid       Kind = "TOKEN_INVALID"
	KindUnexpected         Kind = "UNEXPECTED"
)

// Field messages shared by the service and the HTTP boundary.
const (
	MsgBlank        = "can't be blank"
	MsgTaken        = "has already been taken"
	MsgInvalid      = "is invalid"
	MsgNotFound     = "not found"
	MsgUnexpected   = "an unexpected error occurred"
	MsgTokenInvalid = "token is missing or invalid"
)

// FieldErrors maps a field name to its messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Error is the single tagged failure type returned by Service.
// Fields is always non-nil; Err carries the underlying cause for
// KindUnexpected and is never shown to clients.
type Error struct {
	Kind   Kind
	Fields FieldErrors
	Err    error
}

func newError(kind Kind, fields FieldErrors) *Error {
	if fields == nil {
		fields = FieldErrors{}
	}
	return &Error{Kind: kind, Fields: fields}
}

func fieldError(kind Kind, field, msg string) *Error {
	return newError(kind, FieldErrors{field: {msg}})
}

func unexpected(err error) *Error {
	e := newError(KindUnexpected, FieldErrors{"server": {MsgUnexpected}})
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return string(e.Kind)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(e.Fields[k], ", "))
	}
	msg := string(e.Kind) + ": " + strings.Join(parts, "; ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind returns the kind as a string. It lets packages that cannot
// import auth classify errors through a small interface.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// KindOf returns the Kind of err, or KindUnexpected if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
