package whail

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// EngineOptions configures the behavior of the Engine.
type EngineOptions struct {
	// Host overrides the daemon address. Empty uses DOCKER_HOST or the default socket.
	Host string

	// LabelPrefix is the prefix for all managed labels (e.g., "dev.settle").
	// Used to construct the managed label key: "{LabelPrefix}.{ManagedLabel}".
	LabelPrefix string

	// ManagedLabel is the label key suffix that marks resources as managed.
	// Default: "managed".
	ManagedLabel string

	// Labels configures labels for different resource types.
	Labels LabelConfig

	// Platform is the default platform for pulls and creates, e.g. "linux/amd64".
	Platform string

	// StopTimeout is how long StopContainer waits before the daemon kills the
	// container. Zero uses the daemon default.
	StopTimeout time.Duration

	// ExecPollInterval is the interval used while waiting for an exec to
	// report its exit code. Default: 50ms.
	ExecPollInterval time.Duration
}

// DefaultManagedLabel is the default label suffix for marking managed resources.
const DefaultManagedLabel = "managed"

// DefaultLabelPrefix is used when EngineOptions.LabelPrefix is empty.
const DefaultLabelPrefix = "dev.settle"

// Engine implements Runtime on top of the Docker Engine API.
type Engine struct {
	api     client.APIClient
	options EngineOptions

	managedLabelKey   string // e.g., "dev.settle.managed"
	managedLabelValue string // always "true"
}

var _ Runtime = (*Engine)(nil)

// NewEngine creates a new Engine with the given options.
// It connects to the Docker daemon and verifies the connection.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	clientOpts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, ErrDockerNotRunning(err)
	}

	engine := NewEngineWithClient(cli, opts)
	if err := engine.HealthCheck(ctx); err != nil {
		cli.Close()
		return nil, err
	}

	return engine, nil
}

// NewEngineWithClient wraps an existing API client without contacting the daemon.
func NewEngineWithClient(api client.APIClient, opts EngineOptions) *Engine {
	if opts.LabelPrefix == "" {
		opts.LabelPrefix = DefaultLabelPrefix
	}
	if opts.ManagedLabel == "" {
		opts.ManagedLabel = DefaultManagedLabel
	}
	if opts.ExecPollInterval <= 0 {
		opts.ExecPollInterval = 50 * time.Millisecond
	}
	return &Engine{
		api:               api,
		options:           opts,
		managedLabelKey:   opts.LabelPrefix + "." + opts.ManagedLabel,
		managedLabelValue: "true",
	}
}

// HealthCheck verifies the Docker daemon is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.api.Ping(ctx); err != nil {
		return ErrDockerNotRunning(err)
	}
	return nil
}

// Close releases Docker client resources.
func (e *Engine) Close() error {
	return e.api.Close()
}

// Client returns the underlying Docker client for advanced operations.
// Direct client usage bypasses the managed label checks.
func (e *Engine) Client() client.APIClient {
	return e.api
}

// Options returns the engine options.
func (e *Engine) Options() EngineOptions {
	return e.options
}

// ManagedLabelKey returns the full managed label key (e.g., "dev.settle.managed").
func (e *Engine) ManagedLabelKey() string {
	return e.managedLabelKey
}

// managedLabels returns the label set every created resource carries.
func (e *Engine) managedLabels() map[string]string {
	return map[string]string{e.managedLabelKey: e.managedLabelValue}
}

// newManagedFilter creates a filter selecting managed resources, narrowed by extra labels.
func (e *Engine) newManagedFilter(extra map[string]string) filters.Args {
	return LabelFilter(MergeLabels(extra, e.managedLabels()))
}

func (e *Engine) isManaged(labels map[string]string) bool {
	return labels[e.managedLabelKey] == e.managedLabelValue
}
