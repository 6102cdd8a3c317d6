package callback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_AwaitAfterProducerGoroutine(t *testing.T) {
	c := NewCollector[int]()

	go func() {
		for i := range 100 {
			c.OnNext(i)
		}
		c.OnComplete()
	}()

	items, err := c.Await(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 100)
	for i, v := range items {
		assert.Equal(t, i, v, "items keep arrival order")
	}
	assert.True(t, c.IsDone())
}

func TestCollector_ErrorFinishesStream(t *testing.T) {
	c := NewCollector[string]()
	errStream := errors.New("connection reset")

	c.OnNext("a")
	c.OnError(errStream)
	c.OnNext("dropped")
	c.OnComplete()

	items, err := c.Await(context.Background())
	assert.ErrorIs(t, err, errStream)
	assert.Equal(t, []string{"a"}, items)
	assert.Equal(t, 1, c.Count())
}

func TestCollector_AwaitHonorsContext(t *testing.T) {
	c := NewCollector[string]()
	c.OnNext("partial")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	items, err := c.Await(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"partial"}, items)
	assert.False(t, c.IsDone())
}

func TestCollector_ConcurrentProducers(t *testing.T) {
	c := NewCollector[int]()
	var wg sync.WaitGroup
	for p := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				c.OnNext(p*1000 + i)
			}
		}()
	}

	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for !c.IsDone() {
			_ = c.Items()
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	c.OnComplete()
	readers.Wait()

	assert.Equal(t, 400, c.Count())
}

func TestCollector_CompletedPredicateWithPolling(t *testing.T) {
	c := NewCollector[string]()
	p := poll.New(poll.WithInterval(5*time.Millisecond), poll.WithObserver(observe.Noop{}))

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.OnNext("Pull complete")
		c.OnComplete()
	}()

	_, err := p.WaitUntil(context.Background(), c.Completed("image pull"), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pull complete"}, c.Items())
}

func TestCollector_CompletedMessages(t *testing.T) {
	c := NewCollector[int]()
	pred := c.Completed("pull")

	res := pred.Evaluate(context.Background())
	assert.False(t, res.Satisfied())
	assert.Equal(t, "pull still streaming, 0 items so far", res.Message)

	c.OnNext(1)
	c.OnError(errors.New("denied"))
	res = pred.Evaluate(context.Background())
	assert.True(t, res.Satisfied(), "a failed stream is still finished")
	assert.Equal(t, "pull finished after 1 items", res.Message)
}

func TestText(t *testing.T) {
	tx := NewText()
	tx.OnNext("line one\n")
	tx.OnNext("line ")
	tx.OnNext("two")
	tx.OnComplete()

	out, err := tx.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", out)
}

func TestText_ErrorIsRecordedInText(t *testing.T) {
	tx := NewText()
	tx.OnNext("starting")
	tx.OnError(errors.New("exec died"))

	out, err := tx.Await(context.Background())
	assert.EqualError(t, err, "exec died")
	assert.Equal(t, "starting\nerror: exec died\n", out)
}

func TestLineWriter(t *testing.T) {
	c := NewCollector[string]()
	w := LineWriter(c)

	_, _ = fmt.Fprint(w, "alpha\nbe")
	_, _ = fmt.Fprint(w, "ta\n\ngam")
	assert.Equal(t, []string{"alpha\n", "beta\n", "\n"}, c.Items())

	require.NoError(t, w.Close())
	assert.Equal(t, []string{"alpha\n", "beta\n", "\n", "gam"}, c.Items())
	assert.False(t, c.IsDone(), "closing the writer does not finish the stream")

	require.NoError(t, w.Close())
	assert.Equal(t, 4, c.Count())
}
