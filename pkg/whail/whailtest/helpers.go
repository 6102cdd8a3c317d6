package whailtest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/schmitthub/settle/pkg/whail"
)

const (
	// TestLabelPrefix is the label prefix used by test engines.
	TestLabelPrefix = "dev.settle.test"

	// TestManagedLabel is the managed label suffix used by test engines.
	TestManagedLabel = "managed"
)

// TestManagedLabelKey is the full managed label key for test engines.
const TestManagedLabelKey = TestLabelPrefix + "." + TestManagedLabel

// TestEngineOptions returns EngineOptions configured for unit testing.
func TestEngineOptions() whail.EngineOptions {
	return whail.EngineOptions{
		LabelPrefix:  TestLabelPrefix,
		ManagedLabel: TestManagedLabel,
	}
}

// NewFakeAPIClient creates a FakeAPIClient with sensible defaults.
// Inspect methods return managed, running resources and images are present
// locally, so that the engine's managed checks pass transparently.
func NewFakeAPIClient() *FakeAPIClient {
	f := &FakeAPIClient{}
	f.ContainerInspectFn = func(_ context.Context, id string) (container.InspectResponse, error) {
		return ManagedContainerInspect(id, true), nil
	}
	f.NetworkInspectFn = func(_ context.Context, name string, _ network.InspectOptions) (network.Inspect, error) {
		return ManagedNetworkInspect(name), nil
	}
	f.ImageInspectFn = func(_ context.Context, ref string, _ ...client.ImageInspectOption) (image.InspectResponse, error) {
		return image.InspectResponse{ID: "sha256:" + ref}, nil
	}
	f.PingFn = func(context.Context) (types.Ping, error) {
		return types.Ping{APIVersion: "1.47"}, nil
	}
	return f
}

// NewEngine returns an engine backed by a fresh FakeAPIClient.
func NewEngine(t *testing.T) (*whail.Engine, *FakeAPIClient) {
	t.Helper()
	fake := NewFakeAPIClient()
	return whail.NewEngineWithClient(fake, TestEngineOptions()), fake
}

// ManagedContainerInspect returns an inspect response carrying the test managed label.
func ManagedContainerInspect(id string, running bool) container.InspectResponse {
	state := &container.State{Status: "exited", ExitCode: 0}
	if running {
		state = &container.State{Status: "running", Running: true}
	}
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:    id,
			Name:  "/" + id,
			State: state,
		},
		Config: &container.Config{
			Labels: map[string]string{TestManagedLabelKey: "true"},
		},
		NetworkSettings: &container.NetworkSettings{},
	}
}

// UnmanagedContainerInspect returns an inspect response without managed labels.
func UnmanagedContainerInspect(id string) container.InspectResponse {
	resp := ManagedContainerInspect(id, true)
	resp.Config.Labels = map[string]string{}
	return resp
}

// ManagedNetworkInspect returns a network inspect response with managed labels set.
func ManagedNetworkInspect(name string) network.Inspect {
	return network.Inspect{
		Name:   name,
		ID:     "net-" + name,
		Labels: map[string]string{TestManagedLabelKey: "true"},
	}
}

// UnmanagedNetworkInspect returns a network inspect response without managed labels.
func UnmanagedNetworkInspect(name string) network.Inspect {
	return network.Inspect{
		Name:   name,
		ID:     "net-" + name,
		Labels: map[string]string{},
	}
}

// NotFound returns an error the engine classifies as a missing resource.
func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, cerrdefs.ErrNotFound)
}

// Stream is one frame of a multiplexed Docker stream.
type Stream struct {
	Stderr bool
	Data   string
}

// Multiplexed encodes frames the way the daemon does for non-TTY attach and logs.
func Multiplexed(frames ...Stream) []byte {
	var buf bytes.Buffer
	stdout := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	for _, f := range frames {
		w := stdout
		if f.Stderr {
			w = stderr
		}
		_, _ = io.WriteString(w, f.Data)
	}
	return buf.Bytes()
}

// Hijacked wraps payload in a HijackedResponse as returned by exec attach.
func Hijacked(payload []byte) types.HijackedResponse {
	local, remote := net.Pipe()
	_ = remote.Close()
	return types.HijackedResponse{
		Conn:   local,
		Reader: bufio.NewReader(bytes.NewReader(payload)),
	}
}

// ReadCloser returns payload as an io.ReadCloser.
func ReadCloser(payload []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(payload))
}
