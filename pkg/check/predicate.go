package check

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

// PredicateResult is the outcome of a single predicate evaluation together
// with a message describing the observed state.
type PredicateResult struct {
	Result  Result[bool]
	Message string
}

// Satisfied reports whether the evaluation produced Success(true).
func (r PredicateResult) Satisfied() bool {
	v, err := r.Result.Value()
	return err == nil && v
}

// Predicate is a named boolean check that may be evaluated any number of
// times. Evaluate must be free of side effects the caller would notice.
type Predicate struct {
	label string
	eval  func(context.Context) PredicateResult
}

// NewPredicate builds a predicate from an evaluation function.
func NewPredicate(label string, eval func(context.Context) PredicateResult) Predicate {
	return Predicate{label: label, eval: eval}
}

// Label returns the predicate name.
func (p Predicate) Label() string {
	return p.label
}

// Labeled returns a copy of p under a new name.
func (p Predicate) Labeled(label string) Predicate {
	p.label = label
	return p
}

// Evaluate runs the predicate once. Panics are recovered into a Failure.
func (p Predicate) Evaluate(ctx context.Context) (res PredicateResult) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Label: p.label, Value: r, Stack: debug.Stack()}
			res = PredicateResult{
				Result:  Failure[bool](err),
				Message: fmt.Sprintf("%s panicked: %v", p.label, r),
			}
		}
	}()
	if p.eval == nil {
		return PredicateResult{Result: Failure[bool](fmt.Errorf("predicate %q has no evaluator", p.label))}
	}
	return p.eval(ctx)
}

// FromExecution turns a boolean execution into a predicate with the same label.
func FromExecution(exec Execution[bool]) Predicate {
	return NewPredicate(exec.Label(), func(ctx context.Context) PredicateResult {
		res := exec.Run(ctx)
		v, err := res.Value()
		if err != nil {
			return PredicateResult{Result: res, Message: fmt.Sprintf("%s failed: %v", exec.Label(), err)}
		}
		return PredicateResult{Result: res, Message: fmt.Sprintf("%s is %t", exec.Label(), v)}
	})
}

// Equals holds when exec succeeds with a value equal to want.
func Equals[T comparable](exec Execution[T], want T) Predicate {
	return NewPredicate(exec.Label(), func(ctx context.Context) PredicateResult {
		got, err := exec.Run(ctx).Value()
		if err != nil {
			return PredicateResult{
				Result:  Failure[bool](err),
				Message: fmt.Sprintf("%s failed: %v", exec.Label(), err),
			}
		}
		if got == want {
			return PredicateResult{Result: Success(true), Message: fmt.Sprintf("%s = %v", exec.Label(), got)}
		}
		return PredicateResult{
			Result:  Success(false),
			Message: fmt.Sprintf("%s: expected %v, got %v", exec.Label(), want, got),
		}
	})
}

// Matches holds when exec succeeds with a value accepted by fn. The
// description names the expectation in messages, e.g. "contains 'ready'".
func Matches[T any](exec Execution[T], description string, fn func(T) bool) Predicate {
	return NewPredicate(exec.Label(), func(ctx context.Context) PredicateResult {
		got, err := exec.Run(ctx).Value()
		if err != nil {
			return PredicateResult{
				Result:  Failure[bool](err),
				Message: fmt.Sprintf("%s failed: %v", exec.Label(), err),
			}
		}
		if fn(got) {
			return PredicateResult{Result: Success(true), Message: fmt.Sprintf("%s %s", exec.Label(), description)}
		}
		return PredicateResult{
			Result:  Success(false),
			Message: fmt.Sprintf("%s: expected value that %s, got %v", exec.Label(), description, got),
		}
	})
}

// Not negates successful evaluations of p. Failures pass through unchanged.
func Not(p Predicate) Predicate {
	return NewPredicate("not "+p.label, func(ctx context.Context) PredicateResult {
		res := p.Evaluate(ctx)
		v, err := res.Result.Value()
		if err != nil {
			return res
		}
		return PredicateResult{Result: Success(!v), Message: res.Message}
	})
}

// All holds when every predicate holds. Evaluation stops at the first
// predicate that is false or fails.
func All(ps ...Predicate) Predicate {
	return NewPredicate(joinLabels(ps, " and "), func(ctx context.Context) PredicateResult {
		msgs := make([]string, 0, len(ps))
		for _, p := range ps {
			res := p.Evaluate(ctx)
			if !res.Satisfied() {
				return res
			}
			msgs = append(msgs, res.Message)
		}
		return PredicateResult{Result: Success(true), Message: strings.Join(msgs, "; ")}
	})
}

// Any holds when at least one predicate holds. If none hold and at least one
// failed, the last failure is reported.
func Any(ps ...Predicate) Predicate {
	return NewPredicate(joinLabels(ps, " or "), func(ctx context.Context) PredicateResult {
		var failed *PredicateResult
		msgs := make([]string, 0, len(ps))
		for _, p := range ps {
			res := p.Evaluate(ctx)
			if res.Satisfied() {
				return res
			}
			if res.Result.Err() != nil {
				failed = &res
			}
			msgs = append(msgs, res.Message)
		}
		if failed != nil {
			return *failed
		}
		return PredicateResult{Result: Success(false), Message: strings.Join(msgs, "; ")}
	})
}

func joinLabels(ps []Predicate, sep string) string {
	labels := make([]string, len(ps))
	for i, p := range ps {
		labels[i] = p.label
	}
	return strings.Join(labels, sep)
}
