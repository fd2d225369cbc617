package store

import (
	"errors"
	"fmt"

	"github.com/roach88/dcmindex/internal/match"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates the catalog could not be opened or its
	// schema created. Fatal; the store does not retry.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeModelMismatch indicates a request whose shape does not fit the
	// model: a missing or inexact above-level unique key, or an unknown
	// level.
	ErrCodeModelMismatch ErrorCode = "IDENTIFIER_DOES_NOT_MATCH_MODEL"

	// ErrCodeUnableToProcess indicates a statement failed to execute.
	ErrCodeUnableToProcess ErrorCode = "UNABLE_TO_PROCESS"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrClosed is wrapped by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Error is a categorized store failure.
type Error struct {
	Code    ErrorCode
	Message string
	// Attribute names the offending attribute of a model mismatch.
	Attribute string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Attribute != "" {
		msg += " (attribute=" + e.Attribute + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func configurationError(message string, err error) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message, Err: err}
}

func unableToProcess(op string, err error) *Error {
	return &Error{Code: ErrCodeUnableToProcess, Message: op, Err: err}
}

// planError converts a planner failure into a store error.
func planError(err error) error {
	var mm *match.MismatchError
	if errors.As(err, &mm) {
		return &Error{
			Code:      ErrCodeModelMismatch,
			Message:   "identifier does not match requested model",
			Attribute: mm.Attribute,
			Err:       err,
		}
	}
	return unableToProcess("plan", err)
}

func isCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConfiguration checks if err is a configuration failure.
func IsConfiguration(err error) bool {
	return isCode(err, ErrCodeConfiguration)
}

// IsModelMismatch checks if err is a request-shape failure.
func IsModelMismatch(err error) bool {
	return isCode(err, ErrCodeModelMismatch)
}

// IsUnableToProcess checks if err is a storage execution failure.
func IsUnableToProcess(err error) bool {
	return isCode(err, ErrCodeUnableToProcess)
}
