// Package apperr defines the error taxonomy shared by the identity, ledger,
// catalog and reporting components, and how each code surfaces over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, externally visible error identifier.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeDuplicateIdentity   Code = "duplicate_identity"
	CodeInvalidCredentials  Code = "invalid_credentials"
	CodeInvalidToken        Code = "invalid_token"
	CodeForbidden           Code = "forbidden"
	CodeFundNotFound        Code = "fund_not_found"
	CodeInsufficientFunds   Code = "insufficient_funds"
	CodeConcurrencyConflict Code = "concurrency_conflict"
	CodeRateLimited         Code = "too_many_requests"
	CodeInternalQuery       Code = "internal_query_error"
	CodeInternal            Code = "internal_error"
)

// Error carries a code, a message safe to show to callers, and an optional cause
// that is only ever logged.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrDuplicateIdentity   = &Error{Code: CodeDuplicateIdentity, Message: "email already exists"}
	ErrInvalidCredentials  = &Error{Code: CodeInvalidCredentials, Message: "incorrect username or password"}
	ErrInvalidToken        = &Error{Code: CodeInvalidToken, Message: "could not validate credentials"}
	ErrForbidden           = &Error{Code: CodeForbidden, Message: "admin privileges required"}
	ErrFundNotFound        = &Error{Code: CodeFundNotFound, Message: "fund not found"}
	ErrInsufficientFunds   = &Error{Code: CodeInsufficientFunds, Message: "not enough money to subscribe to the investment fund"}
	ErrConcurrencyConflict = &Error{Code: CodeConcurrencyConflict, Message: "balance update conflicted, please retry"}
	ErrInternalQuery       = &Error{Code: CodeInternalQuery, Message: "internal server error"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal server error"}
)

// New builds an error with a custom message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an error with a custom message and an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validationf is shorthand for a formatted validation failure.
func Validationf(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// PublicMessage returns the message that may be shown to a caller. Causes and
// unknown errors are never exposed.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}

// HTTPStatus maps an error onto the status code the API reports for it.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeDuplicateIdentity, CodeInvalidCredentials, CodeInsufficientFunds:
		return http.StatusBadRequest
	case CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeFundNotFound:
		return http.StatusNotFound
	case CodeConcurrencyConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
