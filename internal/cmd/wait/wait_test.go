package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams/iostreamstest"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/poll"
	"github.com/schmitthub/settle/pkg/whail"
	"github.com/schmitthub/settle/pkg/whail/whailtest"
)

func testFactory(t *testing.T, rt *whailtest.FakeRuntime) (*cmdutil.Factory, *iostreamstest.TestIOStreams) {
	t.Helper()
	ios := iostreamstest.New()
	cfg := config.Default()
	return &cmdutil.Factory{
		IOStreams: ios.IOStreams,
		Config:    func() (*config.Config, error) { return cfg, nil },
		Runtime:   func(context.Context) (cmdutil.Runtime, error) { return rt, nil },
		Observer:  func() observe.Observer { return observe.Noop{} },
	}, ios
}

func TestNewCmdCondition_Flags(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		input   string
		want    WaitOptions
		wantErr string
	}{
		{
			name:  "running with timeout",
			cond:  Running,
			input: "db --timeout 30s --interval 100ms",
			want:  WaitOptions{Condition: Running, Container: "db", Timeout: 30 * time.Second, Interval: 100 * time.Millisecond},
		},
		{
			name:  "log text",
			cond:  Log,
			input: `db "ready to accept" -t 1m`,
			want:  WaitOptions{Condition: Log, Container: "db", Text: "ready to accept", Timeout: time.Minute},
		},
		{
			name:  "exec after dash",
			cond:  Exec,
			input: "db --timeout 5s -- pg_isready -U postgres",
			want:  WaitOptions{Condition: Exec, Container: "db", Argv: []string{"pg_isready", "-U", "postgres"}, Timeout: 5 * time.Second},
		},
		{
			name:    "log needs text",
			cond:    Log,
			input:   "db",
			wantErr: "accepts 2 arg(s), received 1",
		},
		{
			name:    "exec needs command",
			cond:    Exec,
			input:   "db",
			wantErr: "requires at least 2 arg(s), only received 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := testFactory(t, whailtest.NewFakeRuntime())
			var got *WaitOptions
			cmd := NewCmdCondition(f, tt.cond, func(_ context.Context, opts *WaitOptions) error {
				got = opts
				return nil
			})
			argv, err := shlex.Split(tt.input)
			require.NoError(t, err)
			cmd.SetArgs(argv)
			cmd.SetOut(&discard{})
			cmd.SetErr(&discard{})

			err = cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Condition, got.Condition)
			assert.Equal(t, tt.want.Container, got.Container)
			assert.Equal(t, tt.want.Text, got.Text)
			assert.Equal(t, tt.want.Argv, got.Argv)
			assert.Equal(t, tt.want.Timeout, got.Timeout)
			assert.Equal(t, tt.want.Interval, got.Interval)
		})
	}
}

func startContainer(t *testing.T, rt *whailtest.FakeRuntime, name string) string {
	t.Helper()
	ctx := context.Background()
	id, err := rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{Name: name})
	require.NoError(t, err)
	require.NoError(t, rt.StartContainer(ctx, id))
	return id
}

func run(t *testing.T, f *cmdutil.Factory, cond Condition, args ...string) error {
	t.Helper()
	cmd := NewCmdCondition(f, cond, nil)
	cmd.SetArgs(args)
	cmd.SetOut(&discard{})
	cmd.SetErr(&discard{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestWaitRunning(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	startContainer(t, rt, "web")
	f, ios := testFactory(t, rt)

	require.NoError(t, run(t, f, Running, "web"))
	assert.Equal(t, "[ok] container web is running\n", ios.OutBuf.String())
	assert.Len(t, rt.CallsTo("InspectContainer"), 1, "satisfied on the first evaluation")
}

func TestWaitRunning_Timeout(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	id := startContainer(t, rt, "web")
	rt.SetRunning(id, false, 3)
	f, ios := testFactory(t, rt)

	err := run(t, f, Running, "web", "--timeout", "60ms", "--interval", "10ms")

	var timeout *poll.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Contains(t, timeout.Message, "exit code 3")
	assert.Empty(t, ios.OutBuf.String())
}

func TestWaitStopped(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	id := startContainer(t, rt, "job")
	f, ios := testFactory(t, rt)
	go func() {
		time.Sleep(20 * time.Millisecond)
		rt.SetRunning(id, false, 0)
	}()

	require.NoError(t, run(t, f, Stopped, "job", "--interval", "5ms", "--timeout", "5s"))
	assert.Equal(t, "[ok] container job is not running\n", ios.OutBuf.String())
}

func TestWaitStopped_MissingContainerCountsAsStopped(t *testing.T) {
	f, ios := testFactory(t, whailtest.NewFakeRuntime())

	require.NoError(t, run(t, f, Stopped, "gone"))
	assert.Equal(t, "[ok] container gone is not running\n", ios.OutBuf.String())
}

func TestWaitStopped_InspectFailureIsNotSuccess(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	rt.InspectFn = func(id string) (whail.ContainerStatus, error) {
		return whail.ContainerStatus{}, whail.ErrContainerInspectFailed(id, errors.New("daemon gone"))
	}
	f, ios := testFactory(t, rt)

	err := run(t, f, Stopped, "job", "--timeout", "30ms", "--interval", "5ms")

	var timeout *poll.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Contains(t, timeout.Message, "daemon gone")
	assert.Empty(t, ios.OutBuf.String())
}

func TestWaitLog(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	id := startContainer(t, rt, "redis")
	rt.AppendLog(id, "Ready to accept connections tcp\n")
	f, ios := testFactory(t, rt)

	require.NoError(t, run(t, f, Log, "redis", "Ready to accept"))
	assert.Contains(t, ios.OutBuf.String(), `logs of redis contain "Ready to accept"`)
}

func TestWaitExec(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	startContainer(t, rt, "pg")
	calls := 0
	rt.ExecFn = func(_ string, argv []string) (whail.ExecResult, error) {
		calls++
		if calls < 2 {
			return whail.ExecResult{ExitCode: 2, Lines: []string{"no response"}}, nil
		}
		return whail.ExecResult{}, nil
	}
	f, ios := testFactory(t, rt)

	require.NoError(t, run(t, f, Exec, "pg", "--interval", "1ms", "--", "pg_isready", "-q"))
	assert.Equal(t, 2, calls)
	assert.Contains(t, ios.OutBuf.String(), `"pg_isready -q" succeeds in pg`)
}

func TestWait_NegativeTimeout(t *testing.T) {
	f, _ := testFactory(t, whailtest.NewFakeRuntime())
	err := run(t, f, Running, "x", "--timeout", "-1s")
	var fe *cmdutil.FlagError
	require.ErrorAs(t, err, &fe)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
