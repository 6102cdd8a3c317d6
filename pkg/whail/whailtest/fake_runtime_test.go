package whailtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/pkg/whail"
)

func TestFakeRuntime_Lifecycle(t *testing.T) {
	ctx := context.Background()
	rt := NewFakeRuntime()

	_, err := rt.CreateNetwork(ctx, "net", "10.9.0.0/16")
	require.NoError(t, err)
	id, err := rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{Name: "n1", Network: "net"})
	require.NoError(t, err)

	st, err := rt.InspectContainer(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, "docker.io/library/alpine:latest", st.Image)
	assert.NotEmpty(t, st.IP("net"))

	require.NoError(t, rt.StartContainer(ctx, id))
	st, _ = rt.InspectContainer(ctx, id)
	assert.True(t, st.Running)

	require.Error(t, rt.RemoveContainer(ctx, id, false), "running container needs force")
	require.Error(t, rt.RemoveNetwork(ctx, "net"), "network still in use")

	require.NoError(t, rt.KillContainer(ctx, id, ""))
	st, _ = rt.InspectContainer(ctx, id)
	assert.Equal(t, 137, st.ExitCode)

	require.NoError(t, rt.RemoveContainer(ctx, id, false))
	require.NoError(t, rt.RemoveContainer(ctx, id, false), "removing twice is a no-op")
	require.NoError(t, rt.RemoveNetwork(ctx, "net"))
	assert.Empty(t, rt.ContainerIDs())
	assert.Empty(t, rt.Networks())
}

func TestFakeRuntime_StartFnSeesAttempts(t *testing.T) {
	ctx := context.Background()
	rt := NewFakeRuntime()
	rt.StartFn = func(_ string, attempt int) error {
		if attempt < 3 {
			return errors.New("not ready")
		}
		return nil
	}
	id, err := rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{})
	require.NoError(t, err)

	require.Error(t, rt.StartContainer(ctx, id))
	require.Error(t, rt.StartContainer(ctx, id))
	require.NoError(t, rt.StartContainer(ctx, id))
	assert.Len(t, rt.CallsTo("StartContainer"), 3)
}

func TestFakeRuntime_ExecNonZeroExit(t *testing.T) {
	ctx := context.Background()
	rt := NewFakeRuntime()
	rt.ExecFn = func(_ string, argv []string) (whail.ExecResult, error) {
		return whail.ExecResult{ExitCode: 1, Lines: []string{"not found"}}, nil
	}
	id, _ := rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{})

	_, err := rt.Exec(ctx, id, []string{"true"})
	require.Error(t, err, "exec in a stopped container fails")

	require.NoError(t, rt.StartContainer(ctx, id))
	res, err := rt.Exec(ctx, id, []string{"cat", "/missing"})
	var pe *whail.ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"not found"}, pe.Lines)
	assert.Equal(t, 1, res.ExitCode)

	c, ok := rt.Container(id)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"cat", "/missing"}}, c.Execs)
}

func TestFakeRuntime_LogsFilesAndLabels(t *testing.T) {
	ctx := context.Background()
	rt := NewFakeRuntime()
	a, _ := rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{Name: "a", Labels: map[string]string{"cluster": "x"}})
	_, _ = rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{Name: "b", Labels: map[string]string{"cluster": "y"}})

	rt.AppendLog(a, "hello\n")
	out, err := rt.Logs(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	require.NoError(t, rt.CopyFileToContainer(ctx, a, "/etc/x.conf", "k=v"))
	require.Error(t, rt.CopyFileToContainer(ctx, a, "x.conf", "k=v"))
	c, _ := rt.Container(a)
	assert.Equal(t, "k=v", c.Files["/etc/x.conf"])

	list, err := rt.ListContainers(ctx, map[string]string{"cluster": "x"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Name)

	_, err = rt.CreateContainer(ctx, "alpine", whail.ContainerOptions{Name: "a"})
	assert.Error(t, err, "duplicate name")
}
