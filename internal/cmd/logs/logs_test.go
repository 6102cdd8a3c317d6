package logs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/iostreams/iostreamstest"
	"github.com/schmitthub/settle/pkg/whail"
	"github.com/schmitthub/settle/pkg/whail/whailtest"
)

func TestNewCmdLogs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantFollow bool
		wantErr    string
	}{
		{name: "single container", args: []string{"kv-redis"}},
		{name: "follow", args: []string{"-f", "kv-redis"}, wantFollow: true},
		{name: "no container", args: []string{}, wantErr: "accepts 1 arg(s), received 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *LogsOptions
			cmd := NewCmdLogs(&cmdutil.Factory{IOStreams: iostreamstest.New().IOStreams}, func(_ context.Context, opts *LogsOptions) error {
				got = opts
				return nil
			})
			cmd.SetArgs(tt.args)
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "kv-redis", got.Container)
			assert.Equal(t, tt.wantFollow, got.Follow)
		})
	}
}

func TestLogs_PrintsStream(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	id, err := rt.CreateContainer(context.Background(), "redis", whail.ContainerOptions{Name: "kv-redis"})
	require.NoError(t, err)
	rt.AppendLog(id, "starting\nReady to accept connections")
	ios := iostreamstest.New()
	f := &cmdutil.Factory{
		IOStreams: ios.IOStreams,
		Runtime:   func(context.Context) (cmdutil.Runtime, error) { return rt, nil },
	}

	cmd := NewCmdLogs(f, nil)
	cmd.SetArgs([]string{"kv-redis"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "starting\nReady to accept connections", ios.OutBuf.String())
}

func TestLogs_MissingContainer(t *testing.T) {
	rt := whailtest.NewFakeRuntime()
	f := &cmdutil.Factory{
		IOStreams: iostreamstest.New().IOStreams,
		Runtime:   func(context.Context) (cmdutil.Runtime, error) { return rt, nil },
	}

	cmd := NewCmdLogs(f, nil)
	cmd.SetArgs([]string{"ghost"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	require.Error(t, cmd.Execute())
}

func TestPrinter_FirstTerminalEventWins(t *testing.T) {
	ios := iostreamstest.New()
	p := newPrinter(ios.Out)
	p.OnNext("a\n")
	p.OnError(errors.New("eof"))
	p.OnComplete()

	<-p.done
	require.Error(t, p.err)
	assert.Equal(t, "a\n", ios.OutBuf.String())
}
