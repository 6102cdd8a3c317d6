package whail

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// CreateContainer pulls image if needed and creates a managed container.
func (e *Engine) CreateContainer(ctx context.Context, image string, opts ContainerOptions) (string, error) {
	ref, err := NormalizeImageRef(image)
	if err != nil {
		return "", err
	}
	cfg, hostCfg, netCfg, platform, err := e.buildCreateConfig(ref, opts)
	if err != nil {
		return "", ErrInvalidContainerOptions(opts.Name, err)
	}
	if err := e.EnsureImage(ctx, ref, opts.Platform); err != nil {
		return "", err
	}

	resp, err := e.api.ContainerCreate(ctx, cfg, hostCfg, netCfg, platform, opts.Name)
	if err != nil {
		return "", ErrContainerCreateFailed(opts.Name, err)
	}
	return resp.ID, nil
}

// buildCreateConfig translates ContainerOptions into the Docker create request.
func (e *Engine) buildCreateConfig(ref string, opts ContainerOptions) (*container.Config, *container.HostConfig, *network.NetworkingConfig, *ocispec.Platform, error) {
	cfg := &container.Config{
		Image:      ref,
		Hostname:   opts.Hostname,
		Cmd:        opts.Cmd,
		Entrypoint: opts.Entrypoint,
		Env:        opts.Env,
		User:       opts.User,
		WorkingDir: opts.WorkingDir,
		Labels:     e.options.Labels.ContainerLabels(opts.Labels, e.managedLabels()),
	}
	hostCfg := &container.HostConfig{
		Privileged: opts.Privileged,
		CapAdd:     opts.CapAdd,
	}

	if len(opts.Ports) > 0 {
		exposed, bindings, err := nat.ParsePortSpecs(opts.Ports)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("parsing ports: %w", err)
		}
		cfg.ExposedPorts = exposed
		hostCfg.PortBindings = bindings
	}

	if opts.Memory != "" {
		mem, err := units.RAMInBytes(opts.Memory)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("parsing memory limit: %w", err)
		}
		hostCfg.Resources.Memory = mem
	}
	if opts.CPUs < 0 {
		return nil, nil, nil, nil, fmt.Errorf("cpus must not be negative, got %v", opts.CPUs)
	}
	if opts.CPUs > 0 {
		hostCfg.Resources.NanoCPUs = int64(opts.CPUs * 1e9)
	}

	var netCfg *network.NetworkingConfig
	if opts.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(opts.Network)
		endpoint := &network.EndpointSettings{Aliases: opts.Aliases}
		if opts.IPv4Address != "" {
			endpoint.IPAMConfig = &network.EndpointIPAMConfig{IPv4Address: opts.IPv4Address}
		}
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{opts.Network: endpoint},
		}
	} else if len(opts.Aliases) > 0 || opts.IPv4Address != "" {
		return nil, nil, nil, nil, fmt.Errorf("aliases and ipv4 address require a network")
	}

	platformSpec := opts.Platform
	if platformSpec == "" {
		platformSpec = e.options.Platform
	}
	platform, err := ParsePlatform(platformSpec)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return cfg, hostCfg, netCfg, platform, nil
}

// ParsePlatform parses "os[/arch[/variant]]". An empty string yields nil.
func ParsePlatform(s string) (*ocispec.Platform, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) > 3 || slices.Contains(parts, "") {
		return nil, fmt.Errorf("invalid platform %q: expected os[/arch[/variant]]", s)
	}
	p := &ocispec.Platform{OS: parts[0]}
	if len(parts) > 1 {
		p.Architecture = parts[1]
	}
	if len(parts) > 2 {
		p.Variant = parts[2]
	}
	return p, nil
}

// StartContainer starts a created container.
func (e *Engine) StartContainer(ctx context.Context, id string) error {
	if err := e.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return ErrContainerStartFailed(id, err)
	}
	return nil
}

// StopContainer stops a managed container, waiting up to the configured stop timeout.
func (e *Engine) StopContainer(ctx context.Context, id string) error {
	if err := e.requireManagedContainer(ctx, id); err != nil {
		return err
	}
	var opts container.StopOptions
	if e.options.StopTimeout > 0 {
		secs := int(e.options.StopTimeout / time.Second)
		opts.Timeout = &secs
	}
	if err := e.api.ContainerStop(ctx, id, opts); err != nil {
		return ErrContainerStopFailed(id, err)
	}
	return nil
}

// KillContainer sends signal to a managed container. An empty signal means SIGKILL.
func (e *Engine) KillContainer(ctx context.Context, id, signal string) error {
	if err := e.requireManagedContainer(ctx, id); err != nil {
		return err
	}
	if signal == "" {
		signal = "SIGKILL"
	}
	if err := e.api.ContainerKill(ctx, id, signal); err != nil {
		return ErrContainerKillFailed(id, err)
	}
	return nil
}

// RemoveContainer removes a managed container with its anonymous volumes.
// Removing a container that no longer exists is not an error.
func (e *Engine) RemoveContainer(ctx context.Context, id string, force bool) error {
	if err := e.requireManagedContainer(ctx, id); err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}
		return err
	}
	err := e.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: force, RemoveVolumes: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return ErrContainerRemoveFailed(id, err)
	}
	return nil
}

// InspectContainer returns the status of a container.
func (e *Engine) InspectContainer(ctx context.Context, id string) (ContainerStatus, error) {
	resp, err := e.api.ContainerInspect(ctx, id)
	if err != nil {
		return ContainerStatus{}, ErrContainerInspectFailed(id, err)
	}
	return statusFromInspect(resp), nil
}

// ListContainers returns managed containers carrying all of labels, running or not.
func (e *Engine) ListContainers(ctx context.Context, labels map[string]string) ([]ContainerStatus, error) {
	summaries, err := e.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: e.newManagedFilter(labels),
	})
	if err != nil {
		return nil, ErrContainerListFailed(err)
	}
	out := make([]ContainerStatus, 0, len(summaries))
	for _, s := range summaries {
		st := ContainerStatus{
			ID:      s.ID,
			Image:   s.Image,
			Status:  string(s.State),
			Running: string(s.State) == "running",
		}
		if len(s.Names) > 0 {
			st.Name = strings.TrimPrefix(s.Names[0], "/")
		}
		out = append(out, st)
	}
	return out, nil
}

// requireManagedContainer returns an error unless id names a managed container.
// Not-found errors from the daemon are preserved in the chain.
func (e *Engine) requireManagedContainer(ctx context.Context, id string) error {
	resp, err := e.api.ContainerInspect(ctx, id)
	if err != nil {
		return ErrContainerInspectFailed(id, err)
	}
	if resp.Config == nil || !e.isManaged(resp.Config.Labels) {
		return ErrContainerNotManaged(id)
	}
	return nil
}

func statusFromInspect(resp container.InspectResponse) ContainerStatus {
	st := ContainerStatus{IPAddresses: map[string]string{}}
	if resp.ContainerJSONBase != nil {
		st.ID = resp.ID
		st.Name = strings.TrimPrefix(resp.Name, "/")
		st.Image = resp.Image
		if s := resp.State; s != nil {
			st.Status = string(s.Status)
			st.Running = s.Running
			st.ExitCode = s.ExitCode
			st.Error = s.Error
			if s.Health != nil {
				st.Health = string(s.Health.Status)
			}
			if t, err := time.Parse(time.RFC3339Nano, s.StartedAt); err == nil {
				st.StartedAt = t
			}
		}
	}
	if resp.Config != nil && resp.Config.Image != "" {
		st.Image = resp.Config.Image
	}
	if resp.NetworkSettings != nil {
		for name, ep := range resp.NetworkSettings.Networks {
			if ep != nil && ep.IPAddress != "" {
				st.IPAddresses[name] = ep.IPAddress
			}
		}
	}
	return st
}
