package whail

import (
	"context"
	"strings"
	"time"
)

// Runtime is the container runtime contract consumed by the polling and
// cluster layers. Engine implements it against the Docker Engine API;
// whailtest.FakeRuntime implements it in memory.
type Runtime interface {
	// CreateContainer pulls image if it is not present locally and creates a
	// container from it. The tag defaults to "latest".
	CreateContainer(ctx context.Context, image string, opts ContainerOptions) (string, error)
	// StartContainer starts a created container. It may fail transiently right
	// after creation.
	StartContainer(ctx context.Context, id string) error
	// StopContainer stops a container and waits for it to exit.
	StopContainer(ctx context.Context, id string) error
	// KillContainer sends signal (default SIGKILL) to the container immediately.
	KillContainer(ctx context.Context, id, signal string) error
	// RemoveContainer removes a container and its anonymous volumes.
	RemoveContainer(ctx context.Context, id string, force bool) error
	// Exec runs argv inside the container. A non-zero exit code is reported
	// as a *ProcessError carrying the exit code and output lines.
	Exec(ctx context.Context, id string, argv []string) (ExecResult, error)
	// Logs returns the full stdout and stderr of the container.
	Logs(ctx context.Context, id string) (string, error)
	// InspectContainer returns the container status.
	InspectContainer(ctx context.Context, id string) (ContainerStatus, error)
	// ListContainers returns managed containers carrying all of labels.
	ListContainers(ctx context.Context, labels map[string]string) ([]ContainerStatus, error)
	// CreateNetwork creates a bridge network, optionally with a fixed subnet.
	CreateNetwork(ctx context.Context, name, subnet string) (string, error)
	// RemoveNetwork removes a network by name or ID.
	RemoveNetwork(ctx context.Context, name string) error
	// CopyFileToContainer writes content to the absolute path inside the
	// container, creating parent directories.
	CopyFileToContainer(ctx context.Context, id, path, content string) error
}

// ContainerOptions configures CreateContainer.
type ContainerOptions struct {
	Name       string
	Hostname   string
	Cmd        []string
	Entrypoint []string
	Env        []string
	User       string
	WorkingDir string
	Labels     map[string]string

	// Network attaches the container to a user-defined network at creation.
	Network     string
	Aliases     []string
	IPv4Address string

	// Ports are Docker-style port specs: "8080", "18080:8080", "127.0.0.1:18080:8080/udp".
	Ports []string

	// Memory is a human-readable limit such as "512m" or "1g".
	Memory string
	CPUs   float64

	Privileged bool
	CapAdd     []string

	// Platform overrides the engine default, e.g. "linux/arm64".
	Platform string
}

// ContainerStatus is the subset of inspect output the core relies on.
type ContainerStatus struct {
	ID        string
	Name      string
	Image     string
	Status    string
	Running   bool
	ExitCode  int
	Health    string
	Error     string
	StartedAt time.Time
	// IPAddresses maps network name to the container's IPv4 address on it.
	IPAddresses map[string]string
}

// IP returns the address of the container on network, or "" if not attached.
func (s ContainerStatus) IP(network string) string {
	return s.IPAddresses[network]
}

// ExecResult is the outcome of a command run with Exec.
type ExecResult struct {
	ExitCode int
	// Lines are the interleaved stdout and stderr lines without line endings.
	Lines []string
}

// Output joins Lines with newlines.
func (r ExecResult) Output() string {
	return strings.Join(r.Lines, "\n")
}
