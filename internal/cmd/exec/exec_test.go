package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams/iostreamstest"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/whail"
	"github.com/schmitthub/settle/pkg/whail/whailtest"
)

func setup(t *testing.T) (*cmdutil.Factory, *iostreamstest.TestIOStreams, *whailtest.FakeRuntime) {
	t.Helper()
	rt := whailtest.NewFakeRuntime()
	ctx := context.Background()
	id, err := rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{Name: "box"})
	require.NoError(t, err)
	require.NoError(t, rt.StartContainer(ctx, id))

	cfg := config.Default()
	cfg.Retry.Delay = time.Millisecond
	ios := iostreamstest.New()
	f := &cmdutil.Factory{
		IOStreams: ios.IOStreams,
		Config:    func() (*config.Config, error) { return cfg, nil },
		Runtime:   func(context.Context) (cmdutil.Runtime, error) { return rt, nil },
		Observer:  func() observe.Observer { return observe.Noop{} },
	}
	return f, ios, rt
}

func execute(f *cmdutil.Factory, args ...string) error {
	cmd := NewCmdExec(f, nil)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestNewCmdExec_Args(t *testing.T) {
	f, _, _ := setup(t)
	var got *ExecOptions
	cmd := NewCmdExec(f, func(_ context.Context, opts *ExecOptions) error {
		got = opts
		return nil
	})
	cmd.SetArgs([]string{"--retry", "3", "box", "--", "sh", "-c", "exit 0"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "box", got.Container)
	assert.Equal(t, []string{"sh", "-c", "exit 0"}, got.Argv)
}

func TestExec_PrintsOutput(t *testing.T) {
	f, ios, rt := setup(t)
	rt.ExecFn = func(_ string, argv []string) (whail.ExecResult, error) {
		return whail.ExecResult{Lines: []string{"PONG"}}, nil
	}

	require.NoError(t, execute(f, "box", "--", "redis-cli", "ping"))
	assert.Equal(t, "PONG\n", ios.OutBuf.String())
}

func TestExec_NonZeroExitBecomesExitError(t *testing.T) {
	f, ios, rt := setup(t)
	rt.ExecFn = func(string, []string) (whail.ExecResult, error) {
		return whail.ExecResult{ExitCode: 1, Lines: []string{"not found"}}, nil
	}

	err := execute(f, "box", "--", "ls", "/missing")

	var exitErr *cmdutil.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, "not found\n", ios.OutBuf.String())
	assert.Len(t, rt.CallsTo("Exec"), 1)
}

func TestExec_RetriesNonZeroExits(t *testing.T) {
	f, ios, rt := setup(t)
	calls := 0
	rt.ExecFn = func(string, []string) (whail.ExecResult, error) {
		calls++
		if calls < 3 {
			return whail.ExecResult{ExitCode: 1, Lines: []string{"connection refused"}}, nil
		}
		return whail.ExecResult{Lines: []string{"open"}}, nil
	}

	require.NoError(t, execute(f, "--retry", "4", "box", "--", "nc", "-z", "redis", "6379"))
	assert.Equal(t, 3, calls)
	assert.Equal(t, "open\n", ios.OutBuf.String())
}

func TestExec_RuntimeErrorIsNotRetried(t *testing.T) {
	f, _, rt := setup(t)
	boom := errors.New("exec create failed")
	rt.ExecFn = func(string, []string) (whail.ExecResult, error) {
		return whail.ExecResult{}, boom
	}

	err := execute(f, "--retry", "4", "box", "--", "true")

	require.ErrorIs(t, err, boom)
	assert.Len(t, rt.CallsTo("Exec"), 1)
}

func TestExec_InvalidRetry(t *testing.T) {
	f, _, _ := setup(t)
	err := execute(f, "--retry", "0", "box", "--", "true")
	var fe *cmdutil.FlagError
	require.ErrorAs(t, err, &fe)
}
