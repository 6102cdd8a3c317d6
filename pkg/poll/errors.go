package poll

import (
	"fmt"
	"time"
)

// TimeoutError is returned when a wait runs past its deadline.
type TimeoutError struct {
	Label   string
	Message string
	Waited  time.Duration
	// Err is the last evaluation error, if the final evaluation failed.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %q: %s", e.Waited.Round(time.Millisecond), e.Label, e.Message)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// EvaluationError is returned when a Poller configured with WithErrorLimit
// sees too many consecutive evaluation failures.
type EvaluationError struct {
	Label    string
	Failures int
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%q failed %d consecutive evaluations: %v", e.Label, e.Failures, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
