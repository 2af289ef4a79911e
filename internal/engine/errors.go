package engine

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeError represents an error detected while compiling or running a
// query.
//
// Runtime errors include:
//   - Recursive expansion: a template expands into a call of itself
//   - Quota exceeded: too many intermediate solutions, or nesting too deep
//   - Unsupported pattern: a call site the engine cannot execute
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FunctionURI identifies the function involved, if any.
	FunctionURI string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeRecursiveExpansion indicates a template reached itself during expansion.
	ErrCodeRecursiveExpansion RuntimeErrorCode = "RECURSIVE_EXPANSION"

	// ErrCodeQuotaExceeded indicates a solution or depth limit was exceeded.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnsupportedPattern indicates a call site the engine cannot run.
	ErrCodeUnsupportedPattern RuntimeErrorCode = "UNSUPPORTED_PATTERN"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FunctionURI != "" {
		return fmt.Sprintf("%s: %s (function=<%s>)", e.Code, e.Message, e.FunctionURI)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRecursionError returns true if the error is a recursive expansion error.
// Uses errors.As to handle wrapped errors.
func IsRecursionError(err error) bool {
	return hasCode(err, ErrCodeRecursiveExpansion)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

// IsUnsupportedPatternError returns true if the error is an unsupported pattern error.
func IsUnsupportedPatternError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedPattern)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewRecursionError creates a RuntimeError for a template that is already on
// the expansion path.
func NewRecursionError(path []string, uri string) *RuntimeError {
	cycle := make([]string, 0, len(path)+1)
	for _, p := range path {
		cycle = append(cycle, "<"+p+">")
	}
	cycle = append(cycle, "<"+uri+">")
	return &RuntimeError{
		Code:        ErrCodeRecursiveExpansion,
		Message:     "template expands into a call of itself",
		FunctionURI: uri,
		Details: map[string]string{
			"path": strings.Join(cycle, " -> "),
		},
	}
}

// NewQuotaError creates a RuntimeError for an exceeded limit.
func NewQuotaError(what string, count, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("%s exceeded (%d > %d)", what, count, limit),
		Details: map[string]string{
			"count": fmt.Sprintf("%d", count),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

// NewUnsupportedPatternError creates a RuntimeError for a call site that
// cannot be executed as a graph pattern.
func NewUnsupportedPatternError(message, uri string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeUnsupportedPattern,
		Message:     message,
		FunctionURI: uri,
	}
}
