// Package condition provides standardized error types for condition evaluation.
package condition

import (
	"errors"
	"fmt"
)

// Standard evaluation error types. Malformed trees and unknown operators are
// surfaced, never silently evaluated to false.
var (
	// ErrUnknownOperator indicates a leaf carried an operator outside the
	// recognized set.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrMalformedCondition indicates a node or operand that cannot be
	// evaluated (bad tree shape, non-numeric operand for a numeric operator,
	// non-sequence operand for "in").
	ErrMalformedCondition = errors.New("malformed condition")
)

// Error wraps an evaluation error with the node context it occurred at.
type Error struct {
	Field    string // Leaf field, if applicable
	Operator string // Operator being evaluated
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("condition %q %s: %v", e.Field, e.Operator, e.Err)
	}

	return fmt.Sprintf("condition group %s: %v", e.Operator, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsConditionError checks if an error originated from condition evaluation.
func IsConditionError(err error) bool {
	return errors.Is(err, ErrUnknownOperator) || errors.Is(err, ErrMalformedCondition)
}

func newError(field, operator string, err error) *Error {
	return &Error{Field: field, Operator: operator, Err: err}
}
