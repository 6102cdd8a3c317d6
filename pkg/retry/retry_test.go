package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/schmitthub/settle/pkg/logger/loggertest"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

// flaky fails k times, each time with a distinct error, then returns value.
func flaky(k int, value string) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= k {
			return "", fmt.Errorf("failure %d", calls)
		}
		return value, nil
	}, &calls
}

func TestDo_SucceedsIffAttemptsExceedFailures(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for k := 0; k <= 5; k++ {
			t.Run(fmt.Sprintf("n=%d,k=%d", n, k), func(t *testing.T) {
				sleeper := &sleepRecorder{}
				r := New(WithSleep(sleeper.Sleep), WithObserver(observe.Noop{}))
				op, calls := flaky(k, "ok")

				v, err := Do(context.Background(), r, Plan{Attempts: n, Label: "op"}, op)

				if n > k {
					require.NoError(t, err)
					assert.Equal(t, "ok", v)
					assert.Equal(t, k+1, *calls)
					assert.Len(t, sleeper.sleeps, k)
					return
				}
				require.Error(t, err)
				assert.EqualError(t, err, fmt.Sprintf("failure %d", n), "last error is returned unchanged")
				assert.Equal(t, n, *calls)
				assert.Len(t, sleeper.sleeps, n-1)
			})
		}
	}
}

func TestRun_StartContainerScenario(t *testing.T) {
	sleeper := &sleepRecorder{}
	r := New(WithSleep(sleeper.Sleep), WithObserver(observe.Noop{}))
	attempts := 0
	startContainer := func(context.Context) error {
		attempts++
		if attempts <= 2 {
			return errors.New("container c1 is not ready to start")
		}
		return nil
	}

	err := r.Run(context.Background(), Plan{Attempts: 4, Label: "start c1"}, startContainer)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, sleeper.sleeps)
}

func TestDo_ReturnsOriginalErrorValue(t *testing.T) {
	sentinel := &customErr{code: 7}
	r := New(WithSleep((&sleepRecorder{}).Sleep), WithObserver(observe.Noop{}))

	_, err := Do(context.Background(), r, Plan{Attempts: 3, Label: "op"}, func(context.Context) (int, error) {
		return 0, sentinel
	})

	assert.Same(t, sentinel, err)
}

type customErr struct{ code int }

func (e *customErr) Error() string { return fmt.Sprintf("code %d", e.code) }

func TestDo_NonPositiveAttemptsRunOnce(t *testing.T) {
	r := New(WithSleep((&sleepRecorder{}).Sleep), WithObserver(observe.Noop{}))
	op, calls := flaky(5, "ok")

	_, err := Do(context.Background(), r, Plan{Attempts: 0}, op)

	require.Error(t, err)
	assert.Equal(t, 1, *calls)
}

func TestDo_Permanent(t *testing.T) {
	sleeper := &sleepRecorder{}
	r := New(WithSleep(sleeper.Sleep), WithObserver(observe.Noop{}))
	errBadImage := errors.New("image not found")
	calls := 0

	_, err := Do(context.Background(), r, Plan{Attempts: 5, Label: "create"}, func(context.Context) (string, error) {
		calls++
		return "", Permanent(errBadImage)
	})

	assert.Same(t, errBadImage, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.sleeps)
	assert.NoError(t, Permanent(nil))
}

func TestDo_ContextCanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(WithObserver(observe.Noop{}), WithDelay(time.Hour))
	calls := 0

	err := r.Run(ctx, Plan{Attempts: 3, Label: "op"}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("still failing")
	})

	assert.EqualError(t, err, "still failing")
	assert.Equal(t, 1, calls)
}

func TestDo_RealDelay(t *testing.T) {
	r := New(WithDelay(20*time.Millisecond), WithObserver(observe.Noop{}))
	op, _ := flaky(2, "ok")

	start := time.Now()
	v, err := Do(context.Background(), r, Plan{Attempts: 3, Label: "op"}, op)

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRetrier_LogsIntermediateFailuresAndExhaustion(t *testing.T) {
	tl := loggertest.New()
	r := New(WithSleep((&sleepRecorder{}).Sleep), WithObserver(observe.LogObserver{Logger: tl.Logger()}))

	err := r.Run(context.Background(), Plan{Attempts: 2, Label: "start c1"}, func(context.Context) error {
		return errors.New("conflict")
	})

	require.Error(t, err)
	out := tl.Output()
	assert.Contains(t, out, "attempt failed, retrying")
	assert.Contains(t, out, "operation failed, giving up")
	assert.Contains(t, out, `"operation":"start c1"`)
}

func TestPackageLevelRun(t *testing.T) {
	calls := 0
	err := Run(context.Background(), 1, "once", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
