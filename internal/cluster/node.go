package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/shlex"

	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/whail"
)

// Node is one container of a cluster.
type Node struct {
	cluster *Cluster

	Spec NodeSpec
	// Name is the short node name, also its hostname and network alias.
	Name string
	// Container is the container name, "<cluster>-<node>".
	Container string
	ID        string
	// HostPorts maps the container port specs that were given a host port
	// by the allocator to that port.
	HostPorts map[string]int
}

// Exec runs argv in the node. A non-zero exit is a *whail.ProcessError.
func (n *Node) Exec(ctx context.Context, argv ...string) (whail.ExecResult, error) {
	return n.cluster.rt.Exec(ctx, n.ID, argv)
}

// ExecLine splits a shell-quoted command line and runs it like Exec. No
// shell is involved.
func (n *Node) ExecLine(ctx context.Context, line string) (whail.ExecResult, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return whail.ExecResult{}, fmt.Errorf("parsing command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return whail.ExecResult{}, fmt.Errorf("empty command")
	}
	return n.Exec(ctx, argv...)
}

// Logs returns the node's combined output so far.
func (n *Node) Logs(ctx context.Context) (string, error) {
	return n.cluster.rt.Logs(ctx, n.ID)
}

// Status inspects the node container.
func (n *Node) Status(ctx context.Context) (whail.ContainerStatus, error) {
	return n.cluster.rt.InspectContainer(ctx, n.ID)
}

// IP returns the node's address on the cluster network.
func (n *Node) IP(ctx context.Context) (string, error) {
	st, err := n.Status(ctx)
	if err != nil {
		return "", err
	}
	ip := st.IP(n.cluster.network)
	if ip == "" {
		return "", fmt.Errorf("node %s has no address on network %s", n.Name, n.cluster.network)
	}
	return ip, nil
}

// HostPort returns the host port bound to containerPort ("6379", "53/udp").
func (n *Node) HostPort(containerPort string) (int, bool) {
	p, ok := n.HostPorts[containerPort]
	return p, ok
}

// Stop stops the node gracefully.
func (n *Node) Stop(ctx context.Context) error {
	return n.cluster.rt.StopContainer(ctx, n.ID)
}

// Kill sends SIGKILL to the node.
func (n *Node) Kill(ctx context.Context) error {
	return n.cluster.rt.KillContainer(ctx, n.ID, "")
}

// Start starts a stopped node again, retrying like Up does, and waits for it
// to be running and ready.
func (n *Node) Start(ctx context.Context) error {
	if err := n.cluster.start(ctx, n); err != nil {
		return err
	}
	return n.cluster.waitReady(ctx, n)
}

func (n *Node) Running() check.Predicate {
	return IsRunning(n.cluster.rt, n.ID).Labeled(fmt.Sprintf("node %s is running", n.Name))
}

func (n *Node) Healthy() check.Predicate {
	return IsHealthy(n.cluster.rt, n.ID).Labeled(fmt.Sprintf("node %s is healthy", n.Name))
}

func (n *Node) LogContains(text string) check.Predicate {
	return LogContains(n.cluster.rt, n.ID, text).Labeled(fmt.Sprintf("logs of node %s contain %q", n.Name, text))
}

func (n *Node) ExecSucceeds(argv ...string) check.Predicate {
	return ExecSucceeds(n.cluster.rt, n.ID, argv...)
}

// WaitUntil waits with the cluster poller; see Cluster.WaitUntil.
func (n *Node) WaitUntil(ctx context.Context, pred check.Predicate, timeout time.Duration) error {
	return n.cluster.WaitUntil(ctx, pred, timeout)
}
