// Package check provides the vocabulary used by the polling and retry
// primitives: a Result type, labeled Executions that normalize their outcome
// into a Result, and Predicates that describe the state they observed.
package check

import "fmt"

// Result is either a successful value or a failure carrying an error.
type Result[T any] struct {
	value T
	err   error
}

// Success returns a successful Result holding v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure returns a failed Result. A nil err is replaced with ErrNilFailure
// so that a Failure can never be mistaken for a Success.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = ErrNilFailure
	}
	return Result[T]{err: err}
}

// Of builds a Result from the conventional (value, error) pair.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// IsSuccess reports whether the result holds a value.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Value returns the held value and error.
func (r Result[T]) Value() (T, error) {
	return r.value, r.err
}

// Get returns the value, or the zero value for a failure.
func (r Result[T]) Get() T {
	return r.value
}

// Err returns the failure error, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Failure(%v)", r.err)
	}
	return fmt.Sprintf("Success(%v)", r.value)
}
