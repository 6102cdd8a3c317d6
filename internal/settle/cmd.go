// Package settle wires the settle CLI together.
package settle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schmitthub/settle/internal/cmd/factory"
	"github.com/schmitthub/settle/internal/cmd/root"
	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/pkg/logger"
)

// Build-time variables injected via ldflags
var (
	Version = "dev"
	Commit  = "none"
)

const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitInterrupt = 130
)

// Main is the entry point for the settle CLI. It returns the process exit code.
func Main() int {
	defer func() { _ = logger.CloseFileWriter() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := factory.New(Version, Commit)
	defer f.CloseRuntime()

	rootCmd := root.NewCmdRoot(f)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	return exitCode(ctx, f, cmd.UsageString, err)
}

func exitCode(ctx context.Context, f *cmdutil.Factory, usage func() string, err error) int {
	if err == nil {
		return exitOK
	}

	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, cmdutil.SilentError) {
		return exitError
	}

	cmdutil.HandleError(f.IOStreams, err)

	var flagErr *cmdutil.FlagError
	if errors.As(err, &flagErr) {
		fmt.Fprintf(f.IOStreams.ErrOut, "\n%s", usage())
		return exitUsage
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return exitInterrupt
	}
	return exitError
}
