package exec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/retry"
	"github.com/schmitthub/settle/pkg/whail"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	IOStreams *iostreams.IOStreams
	Config    func() (*config.Config, error)
	Runtime   func(context.Context) (cmdutil.Runtime, error)
	Observer  func() observe.Observer

	// Attempts runs the command up to this many times until it exits 0.
	Attempts int

	Container string
	Argv      []string
}

// NewCmdExec creates the exec command.
func NewCmdExec(f *cmdutil.Factory, runF func(context.Context, *ExecOptions) error) *cobra.Command {
	opts := &ExecOptions{
		IOStreams: f.IOStreams,
		Config:    f.Config,
		Runtime:   f.Runtime,
		Observer:  func() observe.Observer { return cmdutil.ObserverOf(f) },
	}

	cmd := &cobra.Command{
		Use:   "exec [OPTIONS] CONTAINER -- COMMAND [ARG...]",
		Short: "Run a command in a running container",
		Long: `Runs a command in a running container and prints its combined output.

The process exits with the exit code of the command. With --retry the command
is attempted up to that many times, pausing retry.delay between attempts, and
the output of the last attempt is printed.`,
		Example: `  # Ping redis
  settle exec kv-redis -- redis-cli ping

  # Tolerate a flaky first connection
  settle exec --retry 4 kv-client -- nc -z redis 6379`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Container = args[0]
			opts.Argv = args[1:]
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return execRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Attempts, "retry", 1, "Number of attempts until the command exits 0")

	return cmd
}

func execRun(ctx context.Context, opts *ExecOptions) error {
	ios := opts.IOStreams

	if opts.Attempts < 1 {
		return cmdutil.FlagErrorf("--retry must be at least 1")
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
	plan := retry.Plan{
		Attempts: opts.Attempts,
		Label:    fmt.Sprintf("exec %q in %s", strings.Join(opts.Argv, " "), opts.Container),
	}
	res, err := retry.Do(ctx, cmdutil.NewRetrier(cfg, obs), plan, func(ctx context.Context) (whail.ExecResult, error) {
		res, err := rt.Exec(ctx, opts.Container, opts.Argv)
		var pe *whail.ProcessError
		if err != nil && !errors.As(err, &pe) {
			// Only non-zero exits are retried.
			return res, retry.Permanent(err)
		}
		return res, err
	})

	var pe *whail.ProcessError
	if errors.As(err, &pe) {
		for _, line := range pe.Lines {
			fmt.Fprintln(ios.Out, line)
		}
		return &cmdutil.ExitError{Code: pe.ExitCode}
	}
	if err != nil {
		return err
	}
	for _, line := range res.Lines {
		fmt.Fprintln(ios.Out, line)
	}
	return nil
}
