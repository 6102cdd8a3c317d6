package poll

import "time"

// Deadline is an absolute expiry time fixed when a wait starts.
type Deadline struct {
	start time.Time
	at    time.Time
	now   func() time.Time
}

// NewDeadline returns a deadline d from now.
func NewDeadline(d time.Duration) Deadline {
	return newDeadline(time.Now, d)
}

func newDeadline(now func() time.Time, d time.Duration) Deadline {
	start := now()
	return Deadline{start: start, at: start.Add(d), now: now}
}

// Time returns the absolute expiry time.
func (d Deadline) Time() time.Time {
	return d.at
}

// Overdue reports whether the deadline has passed.
func (d Deadline) Overdue() bool {
	return !d.now().Before(d.at)
}

// Remaining returns the time left, never negative.
func (d Deadline) Remaining() time.Duration {
	if left := d.at.Sub(d.now()); left > 0 {
		return left
	}
	return 0
}

// Elapsed returns the time since the deadline was created.
func (d Deadline) Elapsed() time.Duration {
	return d.now().Sub(d.start)
}
