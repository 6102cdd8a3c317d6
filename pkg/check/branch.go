package check

import "context"

// Branch identifies which way a DoIf went.
type Branch int

const (
	// Consumed means the predicate held and the action ran.
	Consumed Branch = iota
	// Else means the predicate evaluated to false.
	Else
	// ErrorCaptured means the predicate evaluation failed.
	ErrorCaptured
)

func (b Branch) String() string {
	switch b {
	case Consumed:
		return "consumed"
	case Else:
		return "else"
	case ErrorCaptured:
		return "error"
	default:
		return "unknown"
	}
}

// IfResult is the tagged outcome of DoIf. OrElse only fires on Else and
// OnError only fires on ErrorCaptured, so both can always be chained.
type IfResult struct {
	branch Branch
	err    error
}

// DoIf evaluates p exactly once and runs action if it holds.
// An evaluation error is kept on the result and ignored unless OnError is attached.
func DoIf(ctx context.Context, p Predicate, action func()) IfResult {
	res := p.Evaluate(ctx)
	v, err := res.Result.Value()
	switch {
	case err != nil:
		return IfResult{branch: ErrorCaptured, err: err}
	case v:
		if action != nil {
			action()
		}
		return IfResult{branch: Consumed}
	default:
		return IfResult{branch: Else}
	}
}

// Branch returns the branch taken.
func (r IfResult) Branch() Branch {
	return r.branch
}

// Err returns the captured evaluation error, if any.
func (r IfResult) Err() error {
	return r.err
}

// OrElse runs alt immediately when the predicate was false.
func (r IfResult) OrElse(alt func()) IfResult {
	if r.branch == Else && alt != nil {
		alt()
	}
	return r
}

// OnError hands the captured evaluation error to h.
func (r IfResult) OnError(h func(error)) IfResult {
	if r.branch == ErrorCaptured && h != nil {
		h(r.err)
	}
	return r
}

// Expect evaluates p once and returns an *UnexpectedResultError unless it
// holds.
func Expect(ctx context.Context, p Predicate) error {
	res := p.Evaluate(ctx)
	v, err := res.Result.Value()
	if err == nil && v {
		return nil
	}
	return &UnexpectedResultError{Label: p.Label(), Message: res.Message, Value: v, Err: err}
}
