// Package cluster brings up small groups of containers on a private network
// for integration tests and waits for them to settle.
//
// A Cluster owns everything it creates: the network, the node containers and
// the host ports reserved for them. Containers carry the cluster and node
// name as labels so a cluster left behind by a crashed test run can be torn
// down by name with DownByName.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/logger"
	"github.com/schmitthub/settle/pkg/poll"
	"github.com/schmitthub/settle/pkg/retry"
	"github.com/schmitthub/settle/pkg/whail"
)

// Cluster is a set of nodes sharing one bridge network.
type Cluster struct {
	rt      whail.Runtime
	cfg     *config.Config
	name    string
	network string
	subnet  string

	poller  *poll.Poller
	retrier *retry.Retrier
	ports   *PortAllocator

	mu             sync.Mutex
	nodes          []*Node
	networkCreated bool
}

// Option configures a Cluster.
type Option func(*Cluster)

// WithPoller replaces the poller built from the poll section of the config.
func WithPoller(p *poll.Poller) Option {
	return func(c *Cluster) {
		if p != nil {
			c.poller = p
		}
	}
}

// WithRetrier replaces the retrier built from the retry section of the config.
func WithRetrier(r *retry.Retrier) Option {
	return func(c *Cluster) {
		if r != nil {
			c.retrier = r
		}
	}
}

// WithPortAllocator sets the allocator used for node ports. Without one, an
// allocator over the configured range is created on first use.
func WithPortAllocator(a *PortAllocator) Option {
	return func(c *Cluster) {
		c.ports = a
	}
}

// WithSubnet gives the cluster network a fixed subnet, overriding cluster.subnet.
func WithSubnet(cidr string) Option {
	return func(c *Cluster) {
		if cidr != "" {
			c.subnet = cidr
		}
	}
}

// New creates an empty cluster. Nothing is created on the runtime until Up
// or AddNode. An empty name gets a random one.
func New(rt whail.Runtime, cfg *config.Config, name string, opts ...Option) (*Cluster, error) {
	if rt == nil {
		return nil, errors.New("cluster: nil runtime")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if name == "" {
		name = "settle-" + uuid.NewString()[:8]
	}
	if !nodeNamePattern.MatchString(name) {
		return nil, fmt.Errorf("cluster name %q is not a valid container name", name)
	}
	c := &Cluster{
		rt:      rt,
		cfg:     cfg,
		name:    name,
		network: NetworkName(cfg, name),
		subnet:  cfg.Cluster.Subnet,
		poller: poll.New(
			poll.WithInterval(cfg.Poll.Interval),
			poll.WithErrorLimit(cfg.Poll.ErrorLimit),
		),
		retrier: retry.New(retry.WithDelay(cfg.Retry.Delay)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromSpec creates a cluster named and addressed after a cluster file.
func FromSpec(rt whail.Runtime, cfg *config.Config, spec *Spec, opts ...Option) (*Cluster, error) {
	if spec.Subnet != "" {
		opts = append([]Option{WithSubnet(spec.Subnet)}, opts...)
	}
	return New(rt, cfg, spec.Name, opts...)
}

// NetworkName is the network a cluster called name uses.
func NetworkName(cfg *config.Config, name string) string {
	return cfg.Cluster.NetworkPrefix + "-" + name
}

// ClusterLabel is the label key holding the cluster name.
func ClusterLabel(cfg *config.Config) string {
	return cfg.Docker.LabelPrefix + ".cluster"
}

// NodeLabel is the label key holding the node name.
func NodeLabel(cfg *config.Config) string {
	return cfg.Docker.LabelPrefix + ".node"
}

func (c *Cluster) Name() string    { return c.name }
func (c *Cluster) Network() string { return c.network }

// Poller is the poller used for every wait of this cluster.
func (c *Cluster) Poller() *poll.Poller { return c.poller }

// Nodes returns the nodes in creation order.
func (c *Cluster) Nodes() []*Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.nodes)
}

// Node looks a node up by its short name.
func (c *Cluster) Node(name string) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Up creates the network and then every node in order, waiting for each one
// to be running and ready before the next is created. On error the nodes
// created so far are left in place; call Down to clean up.
func (c *Cluster) Up(ctx context.Context, nodes ...NodeSpec) error {
	logger.SetContext(c.name, "")
	if err := c.ensureNetwork(ctx); err != nil {
		return err
	}
	for _, ns := range nodes {
		if _, err := c.AddNode(ctx, ns); err != nil {
			return err
		}
	}
	logger.Info().Str("cluster", c.name).Int("nodes", len(nodes)).Msg("cluster is up")
	return nil
}

// AddNode creates, starts and waits for a single node.
func (c *Cluster) AddNode(ctx context.Context, ns NodeSpec) (*Node, error) {
	if !nodeNamePattern.MatchString(ns.Name) {
		return nil, fmt.Errorf("invalid node name %q", ns.Name)
	}
	if _, exists := c.Node(ns.Name); exists {
		return nil, fmt.Errorf("node %q already exists in cluster %s", ns.Name, c.name)
	}
	if err := c.ensureNetwork(ctx); err != nil {
		return nil, err
	}

	ports, err := c.portAllocator(ns)
	if err != nil {
		return nil, err
	}
	bound, hostPorts, err := bindPorts(ports, ns.Ports)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", ns.Name, err)
	}

	containerName := c.name + "-" + ns.Name
	labels := whail.MergeLabels(ns.Labels, map[string]string{
		ClusterLabel(c.cfg): c.name,
		NodeLabel(c.cfg):    ns.Name,
	})
	id, err := c.rt.CreateContainer(ctx, ns.Image, whail.ContainerOptions{
		Name:        containerName,
		Hostname:    ns.Name,
		Cmd:         ns.Cmd,
		Env:         ns.envList(),
		Labels:      labels,
		Network:     c.network,
		Aliases:     append([]string{ns.Name}, ns.Aliases...),
		IPv4Address: ns.IP,
		Ports:       bound,
		Memory:      ns.Memory,
		CPUs:        ns.CPUs,
		Privileged:  ns.Privileged,
		CapAdd:      ns.CapAdd,
		Platform:    c.cfg.Docker.Platform,
	})
	if err != nil {
		for _, p := range hostPorts {
			ports.Release(p)
		}
		return nil, err
	}

	node := &Node{
		cluster:   c,
		Spec:      ns,
		Name:      ns.Name,
		Container: containerName,
		ID:        id,
		HostPorts: hostPorts,
	}
	c.mu.Lock()
	c.nodes = append(c.nodes, node)
	c.mu.Unlock()

	logger.Debug().Str("node", ns.Name).Str("container", id).Msg("node created")

	paths := make([]string, 0, len(ns.Files))
	for path := range ns.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := c.rt.CopyFileToContainer(ctx, id, path, ns.Files[path]); err != nil {
			return node, err
		}
	}

	if err := c.start(ctx, node); err != nil {
		return node, err
	}
	if err := c.waitReady(ctx, node); err != nil {
		return node, err
	}
	logger.Info().Str("node", ns.Name).Str("container", id).Msg("node is ready")
	return node, nil
}

func (c *Cluster) start(ctx context.Context, n *Node) error {
	plan := retry.Plan{Attempts: c.cfg.Cluster.StartAttempts, Label: "start " + n.Container}
	if err := c.retrier.Run(ctx, plan, func(ctx context.Context) error {
		return c.rt.StartContainer(ctx, n.ID)
	}); err != nil {
		return err
	}
	_, err := c.poller.WaitUntil(ctx, n.Running(), c.cfg.Cluster.StartTimeout)
	return err
}

func (c *Cluster) waitReady(ctx context.Context, n *Node) error {
	timeout := n.Spec.Ready.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Poll.Timeout
	}
	if n.Spec.Ready.Log != "" {
		if _, err := c.poller.WaitUntil(ctx, n.LogContains(n.Spec.Ready.Log), timeout); err != nil {
			return err
		}
	}
	if n.Spec.Ready.Exec != "" {
		argv, err := shlex.Split(n.Spec.Ready.Exec)
		if err != nil {
			return fmt.Errorf("node %s: parsing ready command: %w", n.Name, err)
		}
		if len(argv) == 0 {
			return fmt.Errorf("node %s: empty ready command", n.Name)
		}
		if _, err := c.poller.WaitUntil(ctx, n.ExecSucceeds(argv...), timeout); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cluster) ensureNetwork(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.networkCreated {
		return nil
	}
	if _, err := c.rt.CreateNetwork(ctx, c.network, c.subnet); err != nil {
		return err
	}
	c.networkCreated = true
	logger.Debug().Str("network", c.network).Str("subnet", c.subnet).Msg("cluster network created")
	return nil
}

func (c *Cluster) portAllocator(ns NodeSpec) (*PortAllocator, error) {
	needed := slices.ContainsFunc(ns.Ports, func(p string) bool { return !strings.Contains(p, ":") })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ports != nil || !needed {
		return c.ports, nil
	}
	dir, err := config.PortLockDir()
	if err != nil {
		return nil, err
	}
	a, err := NewPortAllocator(dir, c.cfg.Cluster.PortRangeFrom, c.cfg.Cluster.PortRangeTo)
	if err != nil {
		return nil, err
	}
	c.ports = a
	return a, nil
}

// Down force-removes every node and the network and releases the host ports.
// It keeps going after failures and returns them joined.
func (c *Cluster) Down(ctx context.Context) error {
	c.mu.Lock()
	nodes := slices.Clone(c.nodes)
	networkCreated := c.networkCreated
	c.mu.Unlock()

	var errs []error
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := c.rt.RemoveContainer(ctx, nodes[i].ID, true); err != nil {
			errs = append(errs, err)
		}
	}
	if networkCreated {
		if err := c.rt.RemoveNetwork(ctx, c.network); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	c.nodes = nil
	c.networkCreated = false
	if c.ports != nil {
		c.ports.ReleaseAll()
	}
	c.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		logger.Warn().Err(err).Str("cluster", c.name).Msg("cluster teardown incomplete")
	} else {
		logger.Info().Str("cluster", c.name).Msg("cluster removed")
	}
	return err
}

// DownByName removes the containers labeled with cluster name and its
// network. It is used to clean up clusters whose owning process is gone.
func DownByName(ctx context.Context, rt whail.Runtime, cfg *config.Config, name string) (int, error) {
	containers, err := rt.ListContainers(ctx, map[string]string{ClusterLabel(cfg): name})
	if err != nil {
		return 0, err
	}
	var errs []error
	removed := 0
	for _, ct := range containers {
		if err := rt.RemoveContainer(ctx, ct.ID, true); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if err := rt.RemoveNetwork(ctx, NetworkName(cfg, name)); err != nil {
		errs = append(errs, err)
	}
	return removed, errors.Join(errs...)
}

// WaitUntil polls pred with the cluster poller. A non-positive timeout uses poll.timeout.
func (c *Cluster) WaitUntil(ctx context.Context, pred check.Predicate, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.cfg.Poll.Timeout
	}
	_, err := c.poller.WaitUntil(ctx, pred, timeout)
	return err
}

// WaitWhile polls pred with the cluster poller until it stops holding.
func (c *Cluster) WaitWhile(ctx context.Context, pred check.Predicate, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.cfg.Poll.Timeout
	}
	_, err := c.poller.WaitWhile(ctx, pred, timeout)
	return err
}
