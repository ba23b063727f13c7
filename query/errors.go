package query

import (
	"fmt"
)

var (
	// ErrMisaligned is returned when the rendered placeholders and the
	// parameter list disagree. It indicates a defect in statement
	// construction, never a runtime condition.
	ErrMisaligned errMisaligned
	// ErrExecution is returned when the driver fails to execute, or to
	// commit, a statement. Statement timeouts are reported with this kind.
	ErrExecution errExecution
	// ErrExpectation is returned when a mutation affected an unexpected
	// number of rows.
	ErrExpectation errExpectation
	// ErrStream is returned when reading or serializing a result fails
	// mid-stream.
	ErrStream errStream
	// ErrState is returned when a statement is used out of lifecycle order.
	ErrState errState
)

type (
	errMisaligned  struct{}
	errExecution   struct{}
	errExpectation struct{}
	errStream      struct{}
	errState       struct{}
)

func (e errMisaligned) Error() string {
	return "Parameter misalignment"
}

func (e errExecution) Error() string {
	return "Statement execution failed"
}

func (e errExpectation) Error() string {
	return "Expectation violated"
}

func (e errStream) Error() string {
	return "Result stream failed"
}

func (e errState) Error() string {
	return "Invalid statement state"
}

// ExpectationError carries the counts of a violated expectation.
type ExpectationError struct {
	Expected int64
	Actual   int64
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expected %d row(s) to be affected but affected %d", e.Expected, e.Actual)
}

// Is lets errors.Is match ErrExpectation on the bare error as well.
func (e *ExpectationError) Is(target error) bool {
	return target == ErrExpectation
}
