package logs

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/iostreams"
)

// LogsOptions holds options for the logs command.
type LogsOptions struct {
	IOStreams *iostreams.IOStreams
	Runtime   func(context.Context) (cmdutil.Runtime, error)

	Follow    bool
	Container string
}

// NewCmdLogs creates the logs command.
func NewCmdLogs(f *cmdutil.Factory, runF func(context.Context, *LogsOptions) error) *cobra.Command {
	opts := &LogsOptions{
		IOStreams: f.IOStreams,
		Runtime:   f.Runtime,
	}

	cmd := &cobra.Command{
		Use:   "logs [OPTIONS] CONTAINER",
		Short: "Print the logs of a container",
		Example: `  # Print everything logged so far
  settle logs kv-redis

  # Follow log output until the container stops
  settle logs -f kv-redis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Container = args[0]
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return logsRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Follow log output")

	return cmd
}

func logsRun(ctx context.Context, opts *LogsOptions) error {
	rt, err := opts.Runtime(ctx)
	if err != nil {
		return err
	}

	sink := newPrinter(opts.IOStreams.Out)
	if err := rt.StreamLogs(ctx, opts.Container, opts.Follow, sink); err != nil {
		return err
	}
	select {
	case <-sink.done:
		return sink.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// printer writes streamed lines to out as they arrive.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	err  error
	once sync.Once
	done chan struct{}
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, done: make(chan struct{})}
}

func (p *printer) OnNext(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, line)
}

func (p *printer) OnError(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = fmt.Errorf("streaming logs: %w", err)
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *printer) OnComplete() {
	p.once.Do(func() { close(p.done) })
}
