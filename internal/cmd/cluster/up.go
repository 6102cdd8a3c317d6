package cluster

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cluster"
	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams"
	"github.com/schmitthub/settle/pkg/logger"
	"github.com/schmitthub/settle/pkg/observe"
)

// UpOptions holds options for the cluster up command.
type UpOptions struct {
	IOStreams *iostreams.IOStreams
	Config    func() (*config.Config, error)
	Runtime   func(context.Context) (cmdutil.Runtime, error)
	Observer  func() observe.Observer

	File          string
	Name          string
	KeepOnFailure bool
}

// NewCmdUp creates the cluster up command.
func NewCmdUp(f *cmdutil.Factory, runF func(context.Context, *UpOptions) error) *cobra.Command {
	opts := &UpOptions{
		IOStreams: f.IOStreams,
		Config:    f.Config,
		Runtime:   f.Runtime,
		Observer:  func() observe.Observer { return cmdutil.ObserverOf(f) },
	}

	cmd := &cobra.Command{
		Use:   "up -f FILE",
		Short: "Create a cluster and wait until every node is ready",
		Long: `Creates the cluster network, then each node in file order. Every node is
started with retries (cluster.start_attempts, retry.delay apart), must be
running within cluster.start_timeout, and must then pass its ready checks.

If any step fails the cluster is removed again unless --keep-on-failure is set.`,
		Example: `  settle cluster up -f cluster.yaml
  settle cluster up -f cluster.yaml --name ci-$BUILD_ID`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return upRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Cluster file (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Cluster name (default: the name in the file, or a random one)")
	cmd.Flags().BoolVar(&opts.KeepOnFailure, "keep-on-failure", false, "Leave containers in place when bring-up fails")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func upRun(ctx context.Context, opts *UpOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	spec, err := cluster.LoadSpec(opts.File)
	if err != nil {
		return err
	}
	if opts.Name != "" {
		spec.Name = opts.Name
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	rt, err := opts.Runtime(ctx)
	if err != nil {
		return err
	}

	var obs observe.Observer
	if opts.Observer != nil {
		obs = opts.Observer()
	}
	c, err := cluster.FromSpec(rt, cfg, spec,
		cluster.WithPoller(cmdutil.NewPoller(cfg, obs, 0)),
		cluster.WithRetrier(cmdutil.NewRetrier(cfg, obs)),
	)
	if err != nil {
		return err
	}

	if err := c.Up(ctx, spec.Nodes...); err != nil {
		if !opts.KeepOnFailure {
			if downErr := c.Down(context.WithoutCancel(ctx)); downErr != nil {
				logger.Warn().Err(downErr).Str("cluster", c.Name()).Msg("cleanup after failed bring-up")
			}
		}
		return fmt.Errorf("cluster %s: %w", c.Name(), err)
	}

	fmt.Fprintf(ios.Out, "%s cluster %s is up on network %s\n", cs.SuccessIcon(), c.Name(), c.Network())
	return printNodes(ctx, ios, c)
}

func printNodes(ctx context.Context, ios *iostreams.IOStreams, c *cluster.Cluster) error {
	tw := tabwriter.NewWriter(ios.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tCONTAINER\tIP\tPORTS")
	for _, n := range c.Nodes() {
		ip, err := n.IP(ctx)
		if err != nil {
			ip = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Name, n.Container, ip, formatPorts(n.HostPorts))
	}
	return tw.Flush()
}

func formatPorts(ports map[string]int) string {
	if len(ports) == 0 {
		return "-"
	}
	out := make([]string, 0, len(ports))
	for containerPort, host := range ports {
		out = append(out, fmt.Sprintf("%d->%s", host, containerPort))
	}
	slices.Sort(out)
	return strings.Join(out, ",")
}
