// Package apperrors provides the typed errors shared by the store and the
// HTTP surfaces.
//
// Services return typed errors; handlers check them with errors.Is or read
// the code directly:
//
//	var appErr *apperrors.Error
//	if errors.As(err, &appErr) {
//	    c.JSON(appErr.HTTPStatus(), appErr)
//	}
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation         Code = "VALIDATION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodePersistence        Code = "PERSISTENCE"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus maps a code to the response status used at the boundary.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed failure with optional details about the request key.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Retryable reports whether repeating the read-then-write sequence may succeed.
func (e *Error) Retryable() bool {
	return e.Code == CodeConflict
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict     = &Error{Code: CodeConflict, Message: "conflict"}
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrPersistence  = &Error{Code: CodePersistence, Message: "persistence failure"}
	ErrPageNotFound = &Error{Code: CodeNotFound, Message: "page not found"}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that keeps cause reachable through errors.Unwrap.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func ValidationWithDetails(message string, details any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

func Persistence(message string, cause error) *Error {
	return Wrap(CodePersistence, message, cause)
}

func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// From returns err as an *Error, wrapping unknown errors as internal ones.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", err)
}

// Is is errors.Is, re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
