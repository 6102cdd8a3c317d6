// Package observe defines lifecycle hooks for waits and retries, with
// zerolog and Prometheus implementations.
package observe

import (
	"context"
	"time"

	"github.com/schmitthub/settle/pkg/check"
)

// Outcome is how a wait ended.
type Outcome string

const (
	OutcomeSatisfied Outcome = "satisfied"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeError     Outcome = "error"
)

// Observer receives callbacks from the polling engine and the retry decorator.
// Implementations must be safe for concurrent use.
type Observer interface {
	// OnPoll is called after every predicate evaluation. iteration starts at 1.
	OnPoll(ctx context.Context, label string, iteration int, res check.PredicateResult)
	// OnWaitDone is called once when a wait, until or repeat loop returns.
	OnWaitDone(ctx context.Context, label string, outcome Outcome, elapsed time.Duration, err error)
	// OnRetry is called when an attempt failed and another one will follow after delay.
	OnRetry(ctx context.Context, label string, attempt int, err error, delay time.Duration)
	// OnRetryDone is called once with the total number of attempts made and
	// the final error (nil on success).
	OnRetryDone(ctx context.Context, label string, attempts int, err error)
}

// Noop ignores every event.
type Noop struct{}

func (Noop) OnPoll(context.Context, string, int, check.PredicateResult) {}
func (Noop) OnWaitDone(context.Context, string, Outcome, time.Duration, error) {}
func (Noop) OnRetry(context.Context, string, int, error, time.Duration) {}
func (Noop) OnRetryDone(context.Context, string, int, error) {}

// Multi fans events out to several observers in order.
type Multi []Observer

func (m Multi) OnPoll(ctx context.Context, label string, iteration int, res check.PredicateResult) {
	for _, o := range m {
		o.OnPoll(ctx, label, iteration, res)
	}
}

func (m Multi) OnWaitDone(ctx context.Context, label string, outcome Outcome, elapsed time.Duration, err error) {
	for _, o := range m {
		o.OnWaitDone(ctx, label, outcome, elapsed, err)
	}
}

func (m Multi) OnRetry(ctx context.Context, label string, attempt int, err error, delay time.Duration) {
	for _, o := range m {
		o.OnRetry(ctx, label, attempt, err, delay)
	}
}

func (m Multi) OnRetryDone(ctx context.Context, label string, attempts int, err error) {
	for _, o := range m {
		o.OnRetryDone(ctx, label, attempts, err)
	}
}
