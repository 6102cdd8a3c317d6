package cluster

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cluster"
	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams"
)

// DownOptions holds options for the cluster down command.
type DownOptions struct {
	IOStreams *iostreams.IOStreams
	Config    func() (*config.Config, error)
	Runtime   func(context.Context) (cmdutil.Runtime, error)

	File string
	Name string
}

// NewCmdDown creates the cluster down command.
func NewCmdDown(f *cmdutil.Factory, runF func(context.Context, *DownOptions) error) *cobra.Command {
	opts := &DownOptions{
		IOStreams: f.IOStreams,
		Config:    f.Config,
		Runtime:   f.Runtime,
	}

	cmd := &cobra.Command{
		Use:   "down [NAME | -f FILE]",
		Short: "Remove a cluster's containers and network",
		Example: `  settle cluster down kv
  settle cluster down -f cluster.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Name = args[0]
			}
			if (opts.Name == "") == (opts.File == "") {
				return cmdutil.FlagErrorf("specify either a cluster name or --file")
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return downRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Cluster file naming the cluster")

	return cmd
}

func downRun(ctx context.Context, opts *DownOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	name := opts.Name
	if opts.File != "" {
		spec, err := cluster.LoadSpec(opts.File)
		if err != nil {
			return err
		}
		if spec.Name == "" {
			return fmt.Errorf("%s does not name its cluster; pass the name instead", opts.File)
		}
		name = spec.Name
	}

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	rt, err := opts.Runtime(ctx)
	if err != nil {
		return err
	}

	removed, err := cluster.DownByName(ctx, rt, cfg, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(ios.Out, "%s cluster %s removed (%d containers)\n", cs.SuccessIcon(), name, removed)
	return nil
}
