package whail

import (
	"context"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/network"
)

// CreateNetwork creates a managed bridge network. A non-empty subnet in CIDR
// notation pins the address range so that nodes can be given fixed IPs.
func (e *Engine) CreateNetwork(ctx context.Context, name, subnet string) (string, error) {
	opts := network.CreateOptions{
		Driver: "bridge",
		Labels: e.options.Labels.NetworkLabels(e.managedLabels()),
	}
	if subnet != "" {
		opts.IPAM = &network.IPAM{
			Config: []network.IPAMConfig{{Subnet: subnet}},
		}
	}
	resp, err := e.api.NetworkCreate(ctx, name, opts)
	if err != nil {
		return "", ErrNetworkCreateFailed(name, err)
	}
	return resp.ID, nil
}

// RemoveNetwork removes a managed network. A missing network is not an error.
func (e *Engine) RemoveNetwork(ctx context.Context, name string) error {
	info, err := e.api.NetworkInspect(ctx, name, network.InspectOptions{})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}
		return ErrNetworkRemoveFailed(name, err)
	}
	if !e.isManaged(info.Labels) {
		return ErrNetworkNotManaged(name)
	}
	if err := e.api.NetworkRemove(ctx, info.ID); err != nil && !cerrdefs.IsNotFound(err) {
		return ErrNetworkRemoveFailed(name, err)
	}
	return nil
}
