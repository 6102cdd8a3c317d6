package check

import (
	"errors"
	"fmt"
)

// ErrNilFailure stands in for a nil error passed to Failure.
var ErrNilFailure = errors.New("failure without error")

// PanicError is produced when the body of an Execution or Predicate panics.
type PanicError struct {
	Label string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Label, e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// UnexpectedResultError is returned by Expect when a predicate does not
// evaluate to Success(true).
type UnexpectedResultError struct {
	Label   string
	Message string
	// Value is the observed boolean when the predicate evaluated successfully.
	Value bool
	// Err is the evaluation error when the predicate failed.
	Err error
}

func (e *UnexpectedResultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("expectation %q failed: %v (%s)", e.Label, e.Err, e.Message)
	}
	return fmt.Sprintf("expectation %q failed: got %t (%s)", e.Label, e.Value, e.Message)
}

func (e *UnexpectedResultError) Unwrap() error {
	return e.Err
}
