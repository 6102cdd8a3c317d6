// Package cmdutil holds the dependency container and helpers shared by the
// settle commands.
package cmdutil

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams"
	"github.com/schmitthub/settle/pkg/callback"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/poll"
	"github.com/schmitthub/settle/pkg/retry"
	"github.com/schmitthub/settle/pkg/whail"
)

// Runtime is the container runtime used by commands: the core contract plus
// log streaming and cleanup.
type Runtime interface {
	whail.Runtime
	StreamLogs(ctx context.Context, id string, follow bool, cb callback.Callback[string]) error
	Close() error
}

// Factory provides shared dependencies for CLI commands.
//
// Closure fields are set by internal/cmd/factory and initialize lazily.
// Tests construct &Factory{} directly with fakes. Commands copy only the
// fields they need into their Options struct.
type Factory struct {
	// Set from global flags before command execution.
	ConfigFile  string
	ConfigFlags map[string]*pflag.Flag

	Version string
	Commit  string

	IOStreams *iostreams.IOStreams

	// Config returns the configuration loaded from file, env and flags.
	Config func() (*config.Config, error)

	Runtime      func(context.Context) (Runtime, error)
	CloseRuntime func()

	// Observer receives the wait and retry events of a command. Nil means
	// log through the global logger.
	Observer func() observe.Observer
	// Gatherer exposes the metrics recorded by Observer, if any.
	Gatherer prometheus.Gatherer
}

// NewPoller builds a poller from the poll section of cfg. A positive
// interval overrides the configured one.
func NewPoller(cfg *config.Config, obs observe.Observer, interval time.Duration) *poll.Poller {
	if interval <= 0 {
		interval = cfg.Poll.Interval
	}
	return poll.New(
		poll.WithInterval(interval),
		poll.WithErrorLimit(cfg.Poll.ErrorLimit),
		poll.WithObserver(obs),
	)
}

// NewRetrier builds a retrier from the retry section of cfg.
func NewRetrier(cfg *config.Config, obs observe.Observer) *retry.Retrier {
	return retry.New(retry.WithDelay(cfg.Retry.Delay), retry.WithObserver(obs))
}

// ObserverOf returns f.Observer() or nil when none is wired.
func ObserverOf(f *Factory) observe.Observer {
	if f.Observer == nil {
		return nil
	}
	return f.Observer()
}
