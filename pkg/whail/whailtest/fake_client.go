package whailtest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// FakeAPIClient is a test double for client.APIClient using the function-field
// pattern. Each Docker method the engine calls has a corresponding Fn field.
// If the field is set, the fake delegates to it and records the call. If the
// field is nil, the call panics with "not implemented: MethodName".
//
// The embedded *client.Client (nil) satisfies the rest of the interface.
// Any method not overridden here panics on nil dereference.
type FakeAPIClient struct {
	*client.Client

	mu sync.Mutex

	// Calls records the method names invoked on this fake, in order.
	Calls []string

	ContainerCreateFn  func(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error)
	ContainerStartFn   func(ctx context.Context, id string, opts container.StartOptions) error
	ContainerStopFn    func(ctx context.Context, id string, opts container.StopOptions) error
	ContainerKillFn    func(ctx context.Context, id, signal string) error
	ContainerRemoveFn  func(ctx context.Context, id string, opts container.RemoveOptions) error
	ContainerInspectFn func(ctx context.Context, id string) (container.InspectResponse, error)
	ContainerListFn    func(ctx context.Context, opts container.ListOptions) ([]container.Summary, error)
	ContainerLogsFn    func(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error)

	ExecCreateFn  func(ctx context.Context, id string, opts container.ExecOptions) (container.ExecCreateResponse, error)
	ExecAttachFn  func(ctx context.Context, execID string, opts container.ExecStartOptions) (types.HijackedResponse, error)
	ExecInspectFn func(ctx context.Context, execID string) (container.ExecInspect, error)

	CopyToContainerFn func(ctx context.Context, id, dstPath string, content io.Reader, opts container.CopyToContainerOptions) error

	NetworkCreateFn  func(ctx context.Context, name string, opts network.CreateOptions) (network.CreateResponse, error)
	NetworkInspectFn func(ctx context.Context, name string, opts network.InspectOptions) (network.Inspect, error)
	NetworkRemoveFn  func(ctx context.Context, id string) error

	ImageInspectFn func(ctx context.Context, ref string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePullFn    func(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error)

	PingFn func(ctx context.Context) (types.Ping, error)
}

var _ client.APIClient = (*FakeAPIClient)(nil)

// record appends a method name to the call log (thread-safe).
func (f *FakeAPIClient) record(method string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, method)
	f.mu.Unlock()
}

// notImplemented panics with a descriptive message for unset function fields.
func notImplemented(method string) {
	panic(fmt.Sprintf("not implemented: %s (set %sFn on FakeAPIClient)", method, method))
}

// Called reports whether method was invoked.
func (f *FakeAPIClient) Called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.Calls, method)
}

// Reset clears the Calls log.
func (f *FakeAPIClient) Reset() {
	f.mu.Lock()
	f.Calls = nil
	f.mu.Unlock()
}

func (f *FakeAPIClient) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error) {
	if f.ContainerCreateFn == nil {
		notImplemented("ContainerCreate")
	}
	f.record("ContainerCreate")
	return f.ContainerCreateFn(ctx, config, hostConfig, networkingConfig, platform, name)
}

func (f *FakeAPIClient) ContainerStart(ctx context.Context, id string, opts container.StartOptions) error {
	if f.ContainerStartFn == nil {
		notImplemented("ContainerStart")
	}
	f.record("ContainerStart")
	return f.ContainerStartFn(ctx, id, opts)
}

func (f *FakeAPIClient) ContainerStop(ctx context.Context, id string, opts container.StopOptions) error {
	if f.ContainerStopFn == nil {
		notImplemented("ContainerStop")
	}
	f.record("ContainerStop")
	return f.ContainerStopFn(ctx, id, opts)
}

func (f *FakeAPIClient) ContainerKill(ctx context.Context, id, signal string) error {
	if f.ContainerKillFn == nil {
		notImplemented("ContainerKill")
	}
	f.record("ContainerKill")
	return f.ContainerKillFn(ctx, id, signal)
}

func (f *FakeAPIClient) ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error {
	if f.ContainerRemoveFn == nil {
		notImplemented("ContainerRemove")
	}
	f.record("ContainerRemove")
	return f.ContainerRemoveFn(ctx, id, opts)
}

func (f *FakeAPIClient) ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error) {
	if f.ContainerInspectFn == nil {
		notImplemented("ContainerInspect")
	}
	f.record("ContainerInspect")
	return f.ContainerInspectFn(ctx, id)
}

func (f *FakeAPIClient) ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error) {
	if f.ContainerListFn == nil {
		notImplemented("ContainerList")
	}
	f.record("ContainerList")
	return f.ContainerListFn(ctx, opts)
}

func (f *FakeAPIClient) ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	if f.ContainerLogsFn == nil {
		notImplemented("ContainerLogs")
	}
	f.record("ContainerLogs")
	return f.ContainerLogsFn(ctx, id, opts)
}

func (f *FakeAPIClient) ContainerExecCreate(ctx context.Context, id string, opts container.ExecOptions) (container.ExecCreateResponse, error) {
	if f.ExecCreateFn == nil {
		notImplemented("ExecCreate")
	}
	f.record("ContainerExecCreate")
	return f.ExecCreateFn(ctx, id, opts)
}

func (f *FakeAPIClient) ContainerExecAttach(ctx context.Context, execID string, opts container.ExecStartOptions) (types.HijackedResponse, error) {
	if f.ExecAttachFn == nil {
		notImplemented("ExecAttach")
	}
	f.record("ContainerExecAttach")
	return f.ExecAttachFn(ctx, execID, opts)
}

func (f *FakeAPIClient) ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error) {
	if f.ExecInspectFn == nil {
		notImplemented("ExecInspect")
	}
	f.record("ContainerExecInspect")
	return f.ExecInspectFn(ctx, execID)
}

func (f *FakeAPIClient) CopyToContainer(ctx context.Context, id, dstPath string, content io.Reader, opts container.CopyToContainerOptions) error {
	if f.CopyToContainerFn == nil {
		notImplemented("CopyToContainer")
	}
	f.record("CopyToContainer")
	return f.CopyToContainerFn(ctx, id, dstPath, content, opts)
}

func (f *FakeAPIClient) NetworkCreate(ctx context.Context, name string, opts network.CreateOptions) (network.CreateResponse, error) {
	if f.NetworkCreateFn == nil {
		notImplemented("NetworkCreate")
	}
	f.record("NetworkCreate")
	return f.NetworkCreateFn(ctx, name, opts)
}

func (f *FakeAPIClient) NetworkInspect(ctx context.Context, name string, opts network.InspectOptions) (network.Inspect, error) {
	if f.NetworkInspectFn == nil {
		notImplemented("NetworkInspect")
	}
	f.record("NetworkInspect")
	return f.NetworkInspectFn(ctx, name, opts)
}

func (f *FakeAPIClient) NetworkRemove(ctx context.Context, id string) error {
	if f.NetworkRemoveFn == nil {
		notImplemented("NetworkRemove")
	}
	f.record("NetworkRemove")
	return f.NetworkRemoveFn(ctx, id)
}

func (f *FakeAPIClient) ImageInspect(ctx context.Context, ref string, opts ...client.ImageInspectOption) (image.InspectResponse, error) {
	if f.ImageInspectFn == nil {
		notImplemented("ImageInspect")
	}
	f.record("ImageInspect")
	return f.ImageInspectFn(ctx, ref, opts...)
}

func (f *FakeAPIClient) ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error) {
	if f.ImagePullFn == nil {
		notImplemented("ImagePull")
	}
	f.record("ImagePull")
	return f.ImagePullFn(ctx, ref, opts)
}

func (f *FakeAPIClient) Ping(ctx context.Context) (types.Ping, error) {
	if f.PingFn == nil {
		notImplemented("Ping")
	}
	f.record("Ping")
	return f.PingFn(ctx)
}

func (f *FakeAPIClient) Close() error {
	f.record("Close")
	return nil
}
