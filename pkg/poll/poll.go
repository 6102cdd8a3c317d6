// Package poll implements deadline-bound polling of predicates: wait until a
// condition holds, wait while it holds, or repeat an action while it holds.
//
// All three share one loop. Each iteration evaluates the predicate, stops if
// the continuation test says so, fails with a *TimeoutError once the deadline
// has passed, and otherwise runs a per-iteration effect (a short sleep, or the
// caller's action for RepeatWhile).
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/observe"
)

const (
	// DefaultInterval is the pause between two evaluations.
	DefaultInterval = 50 * time.Millisecond
	// DefaultTimeout is used when a wait is given a non-positive duration.
	DefaultTimeout = 5 * time.Minute
)

// Poller evaluates predicates until they reach a target state.
// The zero value is not usable; construct with New.
type Poller struct {
	interval   time.Duration
	clock      func() time.Time
	sleep      func(context.Context, time.Duration) error
	observer   observe.Observer
	errorLimit int
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the pause between evaluations.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.clock = now
		}
	}
}

// WithSleep replaces the context-aware sleep between evaluations. Intended for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Poller) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithObserver sets the observer notified of every evaluation and of the
// final outcome. The default logs through the global logger.
func WithObserver(o observe.Observer) Option {
	return func(p *Poller) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithErrorLimit makes n consecutive evaluation failures fatal. By default
// (n <= 0) failures only count as "not satisfied" until the deadline.
func WithErrorLimit(n int) Option {
	return func(p *Poller) {
		p.errorLimit = n
	}
}

// New creates a Poller.
func New(opts ...Option) *Poller {
	p := &Poller{
		interval: DefaultInterval,
		clock:    time.Now,
		sleep:    sleepContext,
		observer: observe.LogObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured pause between evaluations.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// WaitUntil blocks until pred evaluates to Success(true) and returns the
// unused part of maxDuration. A failed evaluation counts as not yet satisfied.
func (p *Poller) WaitUntil(ctx context.Context, pred check.Predicate, maxDuration time.Duration) (time.Duration, error) {
	return p.loop(ctx, pred, maxDuration, untilSatisfied, p.pause)
}

// WaitWhile blocks while pred evaluates to Success(true), i.e. until it turns
// false or fails, and returns the unused part of maxDuration.
func (p *Poller) WaitWhile(ctx context.Context, pred check.Predicate, maxDuration time.Duration) (time.Duration, error) {
	return p.loop(ctx, pred, maxDuration, whileSatisfied, p.pause)
}

// RepeatWhile runs action once per iteration for as long as pred evaluates to
// Success(true). There is no pause between iterations other than the action
// itself. An error from action stops the loop and is returned unchanged.
func (p *Poller) RepeatWhile(ctx context.Context, pred check.Predicate, maxDuration time.Duration, action func(context.Context) error) (time.Duration, error) {
	effect := func(ctx context.Context, _ Deadline) error {
		if action == nil {
			return nil
		}
		return action(ctx)
	}
	return p.loop(ctx, pred, maxDuration, whileSatisfied, effect)
}

func untilSatisfied(res check.PredicateResult) bool { return !res.Satisfied() }
func whileSatisfied(res check.PredicateResult) bool { return res.Satisfied() }

// pause sleeps for the poll interval, cut short at the deadline so that the
// final evaluation happens close to it.
func (p *Poller) pause(ctx context.Context, deadline Deadline) error {
	d := p.interval
	if left := deadline.Remaining(); left < d {
		d = left
	}
	return p.sleep(ctx, d)
}

func (p *Poller) loop(
	ctx context.Context,
	pred check.Predicate,
	maxDuration time.Duration,
	cont func(check.PredicateResult) bool,
	effect func(context.Context, Deadline) error,
) (time.Duration, error) {
	if maxDuration <= 0 {
		maxDuration = DefaultTimeout
	}
	deadline := newDeadline(p.clock, maxDuration)
	label := pred.Label()
	failures := 0

	for iteration := 1; ; iteration++ {
		res := pred.Evaluate(ctx)
		p.observer.OnPoll(ctx, label, iteration, res)

		if !cont(res) {
			p.observer.OnWaitDone(ctx, label, observe.OutcomeSatisfied, deadline.Elapsed(), nil)
			return deadline.Remaining(), nil
		}

		evalErr := res.Result.Err()
		if evalErr != nil {
			failures++
		} else {
			failures = 0
		}
		if p.errorLimit > 0 && failures >= p.errorLimit {
			err := &EvaluationError{Label: label, Failures: failures, Err: evalErr}
			p.observer.OnWaitDone(ctx, label, observe.OutcomeError, deadline.Elapsed(), err)
			return 0, err
		}

		if deadline.Overdue() {
			err := &TimeoutError{Label: label, Message: res.Message, Waited: deadline.Elapsed(), Err: evalErr}
			p.observer.OnWaitDone(ctx, label, observe.OutcomeTimeout, deadline.Elapsed(), err)
			return 0, err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, p.canceled(ctx, label, deadline, ctxErr)
		}

		if err := effect(ctx, deadline); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, p.canceled(ctx, label, deadline, ctxErr)
			}
			p.observer.OnWaitDone(ctx, label, observe.OutcomeError, deadline.Elapsed(), err)
			return 0, err
		}
	}
}

func (p *Poller) canceled(ctx context.Context, label string, deadline Deadline, cause error) error {
	err := fmt.Errorf("waiting for %q: %w", label, cause)
	p.observer.OnWaitDone(ctx, label, observe.OutcomeCanceled, deadline.Elapsed(), err)
	return err
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

var defaultPoller = New()

// WaitUntil waits with the default poller. See Poller.WaitUntil.
func WaitUntil(ctx context.Context, pred check.Predicate, maxDuration time.Duration) (time.Duration, error) {
	return defaultPoller.WaitUntil(ctx, pred, maxDuration)
}

// WaitWhile waits with the default poller. See Poller.WaitWhile.
func WaitWhile(ctx context.Context, pred check.Predicate, maxDuration time.Duration) (time.Duration, error) {
	return defaultPoller.WaitWhile(ctx, pred, maxDuration)
}

// RepeatWhile repeats with the default poller. See Poller.RepeatWhile.
func RepeatWhile(ctx context.Context, pred check.Predicate, maxDuration time.Duration, action func(context.Context) error) (time.Duration, error) {
	return defaultPoller.RepeatWhile(ctx, pred, maxDuration, action)
}
