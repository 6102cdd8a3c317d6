// Package callback bridges push-style asynchronous notifications (streamed
// log lines, exec output, image pull progress) into values that can be
// awaited or polled.
//
// A producer goroutine owned by the runtime client calls OnNext for every
// item and finishes with OnComplete or OnError. The consumer either blocks in
// Await or polls the Completed predicate with the poll package.
package callback

import (
	"context"
	"fmt"
	"sync"

	"github.com/schmitthub/settle/pkg/check"
)

// Callback receives the events of one asynchronous stream.
type Callback[T any] interface {
	OnNext(item T)
	OnError(err error)
	OnComplete()
}

// Collector buffers the items of one stream. It is safe to call its
// methods from any goroutine. Once finished, further events are dropped.
type Collector[T any] struct {
	mu    sync.Mutex
	items []T
	err   error
	done  chan struct{}
	once  sync.Once
}

// NewCollector creates an empty, unfinished collector.
func NewCollector[T any]() *Collector[T] {
	return &Collector[T]{done: make(chan struct{})}
}

// OnNext appends item in arrival order.
func (c *Collector[T]) OnNext(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finishedLocked() {
		return
	}
	c.items = append(c.items, item)
}

// OnError records err and finishes the stream.
func (c *Collector[T]) OnError(err error) {
	c.finish(err)
}

// OnComplete finishes the stream successfully.
func (c *Collector[T]) OnComplete() {
	c.finish(nil)
}

func (c *Collector[T]) finish(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		close(c.done)
		c.mu.Unlock()
	})
}

// finishedLocked must be called with c.mu held.
func (c *Collector[T]) finishedLocked() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed when the stream finishes.
func (c *Collector[T]) Done() <-chan struct{} {
	return c.done
}

// IsDone reports whether the stream has finished.
func (c *Collector[T]) IsDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Items returns a snapshot of the items received so far.
func (c *Collector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the number of items received so far.
func (c *Collector[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Err returns the recorded stream error.
func (c *Collector[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Await blocks until the stream finishes or ctx is done and returns the
// received items together with the stream error, if any. A canceled ctx
// returns the items received so far and ctx.Err().
func (c *Collector[T]) Await(ctx context.Context) ([]T, error) {
	select {
	case <-c.done:
		return c.Items(), c.Err()
	case <-ctx.Done():
		return c.Items(), ctx.Err()
	}
}

// Completed returns a predicate that holds once the stream has finished,
// whether successfully or not.
func (c *Collector[T]) Completed(label string) check.Predicate {
	return check.NewPredicate(label, func(context.Context) check.PredicateResult {
		if c.IsDone() {
			return check.PredicateResult{
				Result:  check.Success(true),
				Message: fmt.Sprintf("%s finished after %d items", label, c.Count()),
			}
		}
		return check.PredicateResult{
			Result:  check.Success(false),
			Message: fmt.Sprintf("%s still streaming, %d items so far", label, c.Count()),
		}
	})
}
