package observe

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/logger"
)

// LogObserver writes wait and retry events to a zerolog logger.
// Individual polls are logged at trace level, intermediate retry failures at
// warn and exhausted retries at error.
type LogObserver struct {
	// Logger overrides the global logger when non-nil.
	Logger *zerolog.Logger
}

func (o LogObserver) log() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return &logger.Log
}

func (o LogObserver) OnPoll(_ context.Context, label string, iteration int, res check.PredicateResult) {
	ev := o.log().Trace().
		Str("predicate", label).
		Int("iteration", iteration).
		Bool("satisfied", res.Satisfied())
	if err := res.Result.Err(); err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(res.Message)
}

func (o LogObserver) OnWaitDone(_ context.Context, label string, outcome Outcome, elapsed time.Duration, err error) {
	var ev *zerolog.Event
	if outcome == OutcomeSatisfied {
		ev = o.log().Debug()
	} else {
		ev = o.log().Warn().Err(err)
	}
	ev.Str("predicate", label).
		Str("outcome", string(outcome)).
		Dur("elapsed", elapsed).
		Msg("wait finished")
}

func (o LogObserver) OnRetry(_ context.Context, label string, attempt int, err error, delay time.Duration) {
	o.log().Warn().
		Str("operation", label).
		Int("attempt", attempt).
		Dur("delay", delay).
		Err(err).
		Msg("attempt failed, retrying")
}

func (o LogObserver) OnRetryDone(_ context.Context, label string, attempts int, err error) {
	if err == nil {
		o.log().Debug().Str("operation", label).Int("attempts", attempts).Msg("operation succeeded")
		return
	}
	o.log().Error().
		Str("operation", label).
		Int("attempts", attempts).
		Err(err).
		Msg("operation failed, giving up")
}
