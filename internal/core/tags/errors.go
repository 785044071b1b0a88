// Package tags derives container image tag strings from registry metadata.
// This is part of the Functional Core - all functions are pure transformations
// over a populated registry.
package tags

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Version errors
	ErrInvalidVersion = errors.New("version must have exactly three numeric parts")

	// Mode errors
	ErrUnknownMode = errors.New("unknown version part handling mode")

	// Tag parsing errors
	ErrMalformedTag = errors.New("tag does not match <registry>/<path>/<repo>:<tag>")
	ErrTagNotFound  = errors.New("tag does not map to a known definition")
)

// TagError wraps errors with the tag or version that caused them.
type TagError struct {
	Op      string // Operation that failed
	Value   string // Offending tag or version string
	Message string
	Err     error
}

func (e *TagError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %s", e.Op, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

// NewTagError creates a new TagError.
func NewTagError(op, value, message string, err error) *TagError {
	return &TagError{
		Op:      op,
		Value:   value,
		Message: message,
		Err:     err,
	}
}
