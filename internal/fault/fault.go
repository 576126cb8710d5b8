// Package fault defines the shared error taxonomy for the engine,
// treasury, and fee authorizer.
//
// Every rejected operation returns a *fault.Error carrying a stable
// Code. Codes are part of the public surface: callers branch on them,
// and they never change meaning between releases. All failures are
// local and non-retryable by the components themselves — a rejected
// call leaves state exactly as it was.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes operation failures.
type Code string

const (
	// InvalidParameter indicates malformed input, e.g. a non-positive
	// timeout or a bad owner set.
	InvalidParameter Code = "INVALID_PARAMETER"

	// Unauthorized indicates the caller may not perform the action.
	Unauthorized Code = "UNAUTHORIZED"

	// WrongState indicates the action is invalid for the record's
	// current lifecycle state.
	WrongState Code = "WRONG_STATE"

	// BetMismatch indicates a join with a stake unequal to the game's bet.
	BetMismatch Code = "BET_MISMATCH"

	// OutOfBounds indicates board coordinates outside the 3x3 grid.
	OutOfBounds Code = "OUT_OF_BOUNDS"

	// CellOccupied indicates a turn targeting a non-empty cell.
	CellOccupied Code = "CELL_OCCUPIED"

	// TurnTimedOut indicates the mover exceeded their own turn window.
	TurnTimedOut Code = "TURN_TIMED_OUT"

	// QuorumNotMet indicates an execute attempt below the confirmation
	// threshold.
	QuorumNotMet Code = "QUORUM_NOT_MET"

	// AlreadyConfirmed indicates a second confirmation by the same owner.
	AlreadyConfirmed Code = "ALREADY_CONFIRMED"

	// AlreadyExecuted indicates an execute attempt on an executed
	// transaction.
	AlreadyExecuted Code = "ALREADY_EXECUTED"

	// AlreadyInitialized indicates a second initialization attempt.
	AlreadyInitialized Code = "ALREADY_INITIALIZED"

	// NotFound indicates a reference to a nonexistent record.
	NotFound Code = "NOT_FOUND"

	// InsufficientFunds indicates a value transfer exceeding the
	// source account balance.
	InsufficientFunds Code = "INSUFFICIENT_FUNDS"
)

// Error is a coded operation failure.
//
// Details carries structured context for diagnostics (ids, amounts,
// expected vs. actual). The zero map is never mutated after creation.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches a context field and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string, 2)
	}
	e.Details[key] = value
	return e
}

// Is reports whether err (or any error it wraps) is a fault with the
// given code. Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// CodeOf returns the fault code of err, or "" if err carries none.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
