// Package errors defines the closed error taxonomy shared by every settlement
// engine. Callers branch on the kind via errors.Is; the set is intentionally
// closed so downstream surfaces (gateway, journal consumers) can map errors
// exhaustively.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind sentinels. Every error produced by an engine unwraps to exactly one of
// these.
var (
	// ErrValidation marks malformed input rejected before any state change.
	ErrValidation = stderrors.New("validation error")
	// ErrState marks a violated precondition on existing ledger state.
	ErrState = stderrors.New("state error")
	// ErrAuthorization marks a caller lacking a required capability.
	ErrAuthorization = stderrors.New("authorization error")
	// ErrPayment marks a value transfer that could not be completed.
	ErrPayment = stderrors.New("payment error")
)

// Error carries a kind sentinel and a human readable message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind sentinel for errors.Is matching.
func (e *Error) Unwrap() error { return e.kind }

// Kind returns the sentinel this error unwraps to.
func (e *Error) Kind() error { return e.kind }

// Validationf builds a validation-kind error.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Statef builds a state-kind error.
func Statef(format string, args ...interface{}) *Error {
	return &Error{kind: ErrState, msg: fmt.Sprintf(format, args...)}
}

// Authorizationf builds an authorization-kind error.
func Authorizationf(format string, args ...interface{}) *Error {
	return &Error{kind: ErrAuthorization, msg: fmt.Sprintf(format, args...)}
}

// Paymentf builds a payment-kind error.
func Paymentf(format string, args ...interface{}) *Error {
	return &Error{kind: ErrPayment, msg: fmt.Sprintf(format, args...)}
}
