package cluster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams/iostreamstest"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/whail/whailtest"
)

const clusterFile = `name: kv
nodes:
  - name: redis
    image: redis:7
    ports: ["16379:6379"]
  - name: client
    image: alpine:3.20
    cmd: [sleep, infinity]
    ready:
      exec: nc -z redis 6379
`

func setup(t *testing.T) (*cmdutil.Factory, *iostreamstest.TestIOStreams, *whailtest.FakeRuntime) {
	t.Helper()
	t.Setenv(config.StateDirEnv, t.TempDir())

	rt := whailtest.NewFakeRuntime()
	cfg := config.Default()
	cfg.Retry.Delay = time.Millisecond
	cfg.Poll.Interval = time.Millisecond
	ios := iostreamstest.New()
	f := &cmdutil.Factory{
		IOStreams: ios.IOStreams,
		Config:    func() (*config.Config, error) { return cfg, nil },
		Runtime:   func(context.Context) (cmdutil.Runtime, error) { return rt, nil },
		Observer:  func() observe.Observer { return observe.Noop{} },
	}
	return f, ios, rt
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, f *cmdutil.Factory, args ...string) error {
	t.Helper()
	cmd := NewCmdCluster(f)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestNewCmdUp_Flags(t *testing.T) {
	f, _, _ := setup(t)
	var got *UpOptions
	cmd := NewCmdUp(f, func(_ context.Context, opts *UpOptions) error {
		got = opts
		return nil
	})
	cmd.SetArgs([]string{"-f", "cluster.yaml", "--name", "ci-1", "--keep-on-failure"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "cluster.yaml", got.File)
	assert.Equal(t, "ci-1", got.Name)
	assert.True(t, got.KeepOnFailure)
}

func TestNewCmdUp_RequiresFile(t *testing.T) {
	f, _, _ := setup(t)
	cmd := NewCmdUp(f, func(context.Context, *UpOptions) error { return nil })
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"file" not set`)
}

func TestUp_BringsUpClusterAndPrintsNodes(t *testing.T) {
	f, ios, rt := setup(t)
	path := writeFile(t, clusterFile)

	require.NoError(t, run(t, f, "up", "-f", path))

	assert.Equal(t, []string{"settle-kv"}, rt.Networks())
	assert.Len(t, rt.CallsTo("StartContainer"), 2)
	assert.Len(t, rt.CallsTo("Exec"), 1)

	out := ios.OutBuf.String()
	assert.Contains(t, out, "cluster kv is up on network settle-kv")
	assert.Contains(t, out, "NODE")
	assert.Contains(t, out, "kv-redis")
	assert.Contains(t, out, "kv-client")
}

func TestUp_NameOverride(t *testing.T) {
	f, ios, rt := setup(t)
	path := writeFile(t, clusterFile)

	require.NoError(t, run(t, f, "up", "-f", path, "--name", "ci-7"))

	assert.Equal(t, []string{"settle-ci-7"}, rt.Networks())
	assert.Contains(t, ios.OutBuf.String(), "ci-7-redis")
}

func TestUp_FailureRemovesCluster(t *testing.T) {
	f, _, rt := setup(t)
	rt.StartFn = func(string, int) error { return errors.New("no space left on device") }
	path := writeFile(t, clusterFile)

	err := run(t, f, "up", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster kv")
	assert.Contains(t, err.Error(), "no space left on device")

	assert.Empty(t, rt.ContainerIDs())
	assert.Empty(t, rt.Networks())
}

func TestUp_KeepOnFailure(t *testing.T) {
	f, _, rt := setup(t)
	rt.StartFn = func(string, int) error { return errors.New("no space left on device") }
	path := writeFile(t, clusterFile)

	require.Error(t, run(t, f, "up", "-f", path, "--keep-on-failure"))

	assert.Len(t, rt.ContainerIDs(), 1)
	assert.Equal(t, []string{"settle-kv"}, rt.Networks())
}

func TestUp_InvalidFile(t *testing.T) {
	f, _, rt := setup(t)
	path := writeFile(t, "nodes: []\n")

	require.Error(t, run(t, f, "up", "-f", path))
	assert.Empty(t, rt.Networks())
}

func TestDown_ByName(t *testing.T) {
	f, ios, rt := setup(t)
	path := writeFile(t, clusterFile)
	require.NoError(t, run(t, f, "up", "-f", path))
	ios.OutBuf.Reset()

	require.NoError(t, run(t, f, "down", "kv"))

	assert.Empty(t, rt.ContainerIDs())
	assert.Empty(t, rt.Networks())
	assert.Contains(t, ios.OutBuf.String(), "cluster kv removed (2 containers)")
}

func TestDown_ByFile(t *testing.T) {
	f, ios, rt := setup(t)
	path := writeFile(t, clusterFile)
	require.NoError(t, run(t, f, "up", "-f", path))
	ios.OutBuf.Reset()

	require.NoError(t, run(t, f, "down", "-f", path))

	assert.Empty(t, rt.ContainerIDs())
	assert.Contains(t, ios.OutBuf.String(), "cluster kv removed")
}

func TestNewCmdDown_NameOrFile(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "name", args: []string{"kv"}},
		{name: "file", args: []string{"-f", "cluster.yaml"}},
		{name: "neither", args: []string{}, wantErr: true},
		{name: "both", args: []string{"kv", "-f", "cluster.yaml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, _ := setup(t)
			cmd := NewCmdDown(f, func(context.Context, *DownOptions) error { return nil })
			cmd.SetArgs(tt.args)
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			err := cmd.Execute()
			if tt.wantErr {
				var flagErr *cmdutil.FlagError
				require.ErrorAs(t, err, &flagErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFormatPorts(t *testing.T) {
	assert.Equal(t, "-", formatPorts(nil))
	assert.Equal(t, "30001->6379,30002->8080", formatPorts(map[string]int{"8080": 30002, "6379": 30001}))
}
