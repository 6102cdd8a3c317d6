// Package retry runs flaky one-shot operations a bounded number of times
// with a fixed delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/schmitthub/settle/pkg/observe"
)

// DefaultDelay is the pause between two attempts.
const DefaultDelay = 250 * time.Millisecond

// Plan describes one retried operation: how many attempts in total and the
// label used when logging failures.
type Plan struct {
	Attempts int
	Label    string
}

// Retrier executes operations according to a Plan.
type Retrier struct {
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
	observer observe.Observer
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithDelay sets the fixed pause between attempts.
func WithDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithSleep replaces the context-aware sleep. Intended for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithObserver sets the observer told about failed attempts and the final
// outcome. The default logs through the global logger.
func WithObserver(o observe.Observer) Option {
	return func(r *Retrier) {
		if o != nil {
			r.observer = o
		}
	}
}

// New creates a Retrier.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		delay:    DefaultDelay,
		sleep:    sleepContext,
		observer: observe.LogObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes op until it succeeds or plan.Attempts attempts have failed.
// The error of the last attempt is returned unchanged.
func (r *Retrier) Run(ctx context.Context, plan Plan, op func(context.Context) error) error {
	_, err := Do(ctx, r, plan, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do executes op until it succeeds or plan.Attempts attempts have failed and
// returns the value of the successful attempt. When every attempt fails the
// error of the last one is returned unchanged. A non-positive attempt count
// runs op once. Errors wrapped with Permanent end the loop immediately.
// If ctx is done while waiting between attempts, the last operation error
// is returned.
func Do[T any](ctx context.Context, r *Retrier, plan Plan, op func(context.Context) (T, error)) (T, error) {
	if r == nil {
		r = defaultRetrier
	}
	attempts := max(plan.Attempts, 1)

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			r.observer.OnRetryDone(ctx, plan.Label, attempt, nil)
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			r.observer.OnRetryDone(ctx, plan.Label, attempt, perm.err)
			return v, perm.err
		}

		if attempt >= attempts {
			r.observer.OnRetryDone(ctx, plan.Label, attempt, err)
			return v, err
		}

		r.observer.OnRetry(ctx, plan.Label, attempt, err, r.delay)
		if sleepErr := r.sleep(ctx, r.delay); sleepErr != nil {
			r.observer.OnRetryDone(ctx, plan.Label, attempt, err)
			return v, err
		}
	}
}

// Run retries op with the default Retrier.
func Run(ctx context.Context, attempts int, label string, op func(context.Context) error) error {
	return defaultRetrier.Run(ctx, Plan{Attempts: attempts, Label: label}, op)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error itself.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var defaultRetrier = New()
