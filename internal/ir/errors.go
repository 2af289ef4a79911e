package ir

import (
	"errors"
	"fmt"
)

// Error represents an evaluation or decoding failure.
//
// Error kinds:
//   - Type errors: an operand has no valid numeric/comparable value
//   - Cast errors: strict lexical validation failed
//   - Argument errors: wrong arity, nil operand, division by zero
//   - Unsupported operator/argument: no handler, or an unbindable argument
//   - Malformed call: a declarative call group violates its required shape
//   - Overflow: checked integer arithmetic overflowed
//
// Error includes structured fields so callers can report the offending
// lexical form and target type without parsing the message.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Lexical is the offending lexical form (cast errors).
	Lexical string

	// Target is the target datatype or operator (cast and operator errors).
	Target string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// ErrCodeType indicates an operand has no valid numeric or comparable value.
	ErrCodeType ErrorCode = "TYPE_ERROR"

	// ErrCodeCast indicates strict lexical validation failed.
	ErrCodeCast ErrorCode = "CAST_ERROR"

	// ErrCodeArgument indicates a wrong arity or nil operand list.
	ErrCodeArgument ErrorCode = "ARGUMENT_ERROR"

	// ErrCodeUnsupportedOperator indicates no registered handler exists.
	ErrCodeUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeUnsupportedArgument indicates an argument shape the decoder cannot bind.
	ErrCodeUnsupportedArgument ErrorCode = "UNSUPPORTED_ARGUMENT"

	// ErrCodeMalformedCall indicates a declarative call group violates its shape.
	ErrCodeMalformedCall ErrorCode = "MALFORMED_CALL"

	// ErrCodeOverflow indicates checked integer arithmetic overflowed.
	ErrCodeOverflow ErrorCode = "OVERFLOW_ERROR"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Lexical != "" && e.Target != "" {
		return fmt.Sprintf("%s: %s (lexical=%q, target=%s)", e.Code, e.Message, e.Lexical, e.Target)
	}
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error by code so errors.Is(err, &Error{Code: ...}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// CodeOf returns the error code carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTypeError returns true if err is a TYPE_ERROR.
func IsTypeError(err error) bool { return CodeOf(err) == ErrCodeType }

// IsCastError returns true if err is a CAST_ERROR.
func IsCastError(err error) bool { return CodeOf(err) == ErrCodeCast }

// IsArgumentError returns true if err is an ARGUMENT_ERROR.
func IsArgumentError(err error) bool { return CodeOf(err) == ErrCodeArgument }

// IsMalformedCall returns true if err is a MALFORMED_CALL.
func IsMalformedCall(err error) bool { return CodeOf(err) == ErrCodeMalformedCall }

// NewTypeError creates an Error for an operand without a usable value.
func NewTypeError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeType, Message: fmt.Sprintf(format, args...)}
}

// NewCastError creates an Error for a failed cast.
// lexical may be empty when the failure is not about a lexical form.
func NewCastError(message, lexical, target string) *Error {
	return &Error{
		Code:    ErrCodeCast,
		Message: message,
		Lexical: lexical,
		Target:  target,
	}
}

// NewArgumentError creates an Error for a bad operand list.
func NewArgumentError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeArgument, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedOperatorError creates an Error for a missing handler.
func NewUnsupportedOperatorError(target string, arity int) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedOperator,
		Message: "no implementation registered",
		Target:  target,
		Details: map[string]string{
			"arity": fmt.Sprintf("%d", arity),
		},
	}
}

// NewUnsupportedArgumentError creates an Error for an unbindable argument.
func NewUnsupportedArgumentError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeUnsupportedArgument, Message: fmt.Sprintf(format, args...)}
}

// NewMalformedCallError creates an Error for an ill-formed call group.
func NewMalformedCallError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeMalformedCall, Message: fmt.Sprintf(format, args...)}
}

// NewOverflowError creates an Error for checked integer overflow.
func NewOverflowError(op string, a, b int64) *Error {
	return &Error{
		Code:    ErrCodeOverflow,
		Message: fmt.Sprintf("integer overflow in %s", op),
		Target:  op,
		Details: map[string]string{
			"left":  fmt.Sprintf("%d", a),
			"right": fmt.Sprintf("%d", b),
		},
	}
}
