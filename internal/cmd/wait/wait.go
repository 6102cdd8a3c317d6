package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cluster"
	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams"
	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/logger"
	"github.com/schmitthub/settle/pkg/observe"
)

// Condition names a container state to wait for.
type Condition string

const (
	Running Condition = "running"
	Stopped Condition = "stopped"
	Healthy Condition = "healthy"
	Log     Condition = "log"
	Exec    Condition = "exec"
)

// WaitOptions holds options for the wait commands.
type WaitOptions struct {
	IOStreams *iostreams.IOStreams
	Config    func() (*config.Config, error)
	Runtime   func(context.Context) (cmdutil.Runtime, error)
	Observer  func() observe.Observer

	Timeout  time.Duration
	Interval time.Duration

	Condition Condition
	Container string
	Text      string
	Argv      []string
}

// NewCmdWait creates the wait command group.
func NewCmdWait(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until a container reaches a condition",
		Long: `Polls a container until a condition holds or the timeout expires.

The condition is evaluated every --interval. A failed evaluation, for example
because the container does not exist yet, counts as "not yet" until the
timeout unless poll.error_limit is set. On timeout the last observed state is
printed and the command exits non-zero.`,
	}

	cmd.AddCommand(NewCmdCondition(f, Running, nil))
	cmd.AddCommand(NewCmdCondition(f, Stopped, nil))
	cmd.AddCommand(NewCmdCondition(f, Healthy, nil))
	cmd.AddCommand(NewCmdCondition(f, Log, nil))
	cmd.AddCommand(NewCmdCondition(f, Exec, nil))

	return cmd
}

// NewCmdCondition creates the wait subcommand for one condition.
func NewCmdCondition(f *cmdutil.Factory, cond Condition, runF func(context.Context, *WaitOptions) error) *cobra.Command {
	opts := &WaitOptions{
		IOStreams: f.IOStreams,
		Config:    f.Config,
		Runtime:   f.Runtime,
		Observer:  func() observe.Observer { return cmdutil.ObserverOf(f) },
		Condition: cond,
	}

	cmd := &cobra.Command{
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Container = args[0]
			switch cond {
			case Log:
				opts.Text = args[1]
			case Exec:
				opts.Argv = args[1:]
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return waitRun(cmd.Context(), opts)
		},
	}

	switch cond {
	case Running:
		cmd.Use = "running CONTAINER"
		cmd.Short = "Wait until a container is running"
		cmd.Args = cobra.ExactArgs(1)
	case Stopped:
		cmd.Use = "stopped CONTAINER"
		cmd.Short = "Wait until a container has stopped"
		cmd.Args = cobra.ExactArgs(1)
	case Healthy:
		cmd.Use = "healthy CONTAINER"
		cmd.Short = "Wait until a container's health check passes"
		cmd.Args = cobra.ExactArgs(1)
	case Log:
		cmd.Use = "log CONTAINER TEXT"
		cmd.Short = "Wait until a container's logs contain TEXT"
		cmd.Args = cobra.ExactArgs(2)
	case Exec:
		cmd.Use = "exec CONTAINER -- COMMAND [ARG...]"
		cmd.Short = "Wait until a command exits 0 inside a container"
		cmd.Example = `  # Wait for postgres to accept connections
  settle wait exec pg-db --timeout 1m -- pg_isready -U postgres`
		cmd.Args = cobra.MinimumNArgs(2)
	}

	cmd.Flags().DurationVarP(&opts.Timeout, "timeout", "t", 0, "Maximum time to wait (default: poll.timeout)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Pause between evaluations (default: poll.interval)")

	return cmd
}

func waitRun(ctx context.Context, opts *WaitOptions) error {
	ios := opts.IOStreams
	cs := ios.ColorScheme()

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if opts.Timeout < 0 || opts.Interval < 0 {
		return cmdutil.FlagErrorf("--timeout and --interval must not be negative")
	}
	rt, err := opts.Runtime(ctx)
	if err != nil {
		return err
	}

	pred := predicateFor(rt, opts)
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = cfg.Poll.Timeout
	}

	var obs observe.Observer
	if opts.Observer != nil {
		obs = opts.Observer()
	}
	poller := cmdutil.NewPoller(cfg, obs, opts.Interval)

	left, err := poller.WaitUntil(ctx, pred, timeout)
	if err != nil {
		return err
	}

	logger.Debug().Str("predicate", pred.Label()).Dur("elapsed", timeout-left).Msg("condition reached")
	fmt.Fprintf(ios.Out, "%s %s\n", cs.SuccessIcon(), pred.Label())
	return nil
}

func predicateFor(rt cmdutil.Runtime, opts *WaitOptions) check.Predicate {
	switch opts.Condition {
	case Stopped:
		return cluster.IsStopped(rt, opts.Container)
	case Healthy:
		return cluster.IsHealthy(rt, opts.Container)
	case Log:
		return cluster.LogContains(rt, opts.Container, opts.Text)
	case Exec:
		return cluster.ExecSucceeds(rt, opts.Container, opts.Argv...)
	default:
		return cluster.IsRunning(rt, opts.Container)
	}
}
