package check

import (
	"context"
	"runtime/debug"
)

// Execution is a labeled, re-runnable description of a side-effecting
// operation. Running it never panics: errors and panics both end up in the
// returned Result. An Execution is a value; Labeled returns a copy.
type Execution[T any] struct {
	label string
	body  func(context.Context) (T, error)
}

// NewExecution wraps body under label.
func NewExecution[T any](label string, body func(context.Context) (T, error)) Execution[T] {
	return Execution[T]{label: label, body: body}
}

// Label returns the human-readable label.
func (e Execution[T]) Label() string {
	return e.label
}

// Labeled returns a copy of e with a different label and the same body.
func (e Execution[T]) Labeled(label string) Execution[T] {
	e.label = label
	return e
}

// Run evaluates the body once and captures its outcome.
func (e Execution[T]) Run(ctx context.Context) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure[T](&PanicError{Label: e.label, Value: r, Stack: debug.Stack()})
		}
	}()
	if e.body == nil {
		var zero T
		return Success(zero)
	}
	v, err := e.body(ctx)
	return Of(v, err)
}
