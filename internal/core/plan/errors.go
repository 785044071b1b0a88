// Package plan computes dependency-respecting build order for definitions
// and paginates the resulting groups into parallel work units. All planner
// state is local to one planning invocation, so planning calls may run
// concurrently over the same registry.
package plan

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Variant errors
	ErrParentVariant = errors.New("variant not declared by parent")

	// Pagination errors
	ErrPageOutOfRange = errors.New("page out of range")
	ErrBadPageTotal   = errors.New("page total must be at least 1")
)

// PlanError wraps errors with the definition that caused them.
type PlanError struct {
	Op      string // Operation that failed
	ID      string // Definition id if applicable
	Message string
	Err     error
}

func (e *PlanError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// NewPlanError creates a new PlanError.
func NewPlanError(op, id, message string, err error) *PlanError {
	return &PlanError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
