package cmdutil

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams/iostreamstest"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/poll"
	"github.com/schmitthub/settle/pkg/whail"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "docker error shows next steps",
			err:  whail.ErrDockerNotRunning(errors.New("dial unix")),
			want: []string{"Error:", "Next Steps:", "dial unix"},
		},
		{
			name: "timeout shows last state",
			err: fmt.Errorf("wrapped: %w", &poll.TimeoutError{
				Label: "container db is running", Message: "container db is exited", Waited: 1500 * time.Millisecond,
			}),
			want: []string{"[error] timed out after 1.5s waiting for container db is running", "last state: container db is exited"},
		},
		{
			name: "timeout wrapping a docker error keeps the timeout",
			err: &poll.TimeoutError{
				Label:   "container db is running",
				Message: "inspect failed",
				Waited:  time.Second,
				Err:     whail.ErrContainerInspectFailed("db", errors.New("boom")),
			},
			want: []string{"timed out after 1s waiting for container db is running", "last state: inspect failed"},
		},
		{
			name: "evaluation limit wrapping a docker error names the check",
			err: &poll.EvaluationError{
				Label:    "container db is running",
				Failures: 3,
				Err:      whail.ErrContainerInspectFailed("db", errors.New("boom")),
			},
			want: []string{`[error] "container db is running" failed 3 consecutive evaluations`},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: []string{"[error] boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ios := iostreamstest.New()
			HandleError(ios.IOStreams, tt.err)
			for _, w := range tt.want {
				assert.Contains(t, ios.ErrBuf.String(), w)
			}
		})
	}
}

func TestHandleError_Silent(t *testing.T) {
	ios := iostreamstest.New()
	HandleError(ios.IOStreams, SilentError)
	HandleError(ios.IOStreams, nil)
	assert.Empty(t, ios.ErrBuf.String())
}

func TestExitAndFlagErrors(t *testing.T) {
	assert.Equal(t, "exit status 3", (&ExitError{Code: 3}).Error())
	err := FlagErrorf("bad %s", "flag")
	var fe *FlagError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, "bad flag", err.Error())
}

func TestNewPoller(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, cfg.Poll.Interval, NewPoller(cfg, observe.Noop{}, 0).Interval())
	assert.Equal(t, time.Second, NewPoller(cfg, observe.Noop{}, time.Second).Interval())
	assert.NotNil(t, NewRetrier(cfg, nil))
	assert.Nil(t, ObserverOf(&Factory{}))
}
