package factory

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/internal/iostreams"
	"github.com/schmitthub/settle/pkg/logger"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/whail"
)

// New creates a fully-wired Factory with lazy-initialized dependency closures.
// Called exactly once at the CLI entry point (internal/settle/cmd.go).
// Tests should NOT import this package; construct &cmdutil.Factory{} directly.
func New(version, commit string) *cmdutil.Factory {
	f := &cmdutil.Factory{
		Version:   version,
		Commit:    commit,
		IOStreams: iostreams.NewIOStreams(),
	}

	// Config
	var (
		configOnce sync.Once
		configData *config.Config
		configErr  error
	)
	f.Config = func() (*config.Config, error) {
		configOnce.Do(func() {
			var used string
			configData, used, configErr = config.Load(config.LoadOptions{
				File:  f.ConfigFile,
				Flags: f.ConfigFlags,
			})
			if configErr == nil && used != "" {
				logger.Debug().Str("file", used).Msg("loaded configuration")
			}
		})
		return configData, configErr
	}

	// Runtime
	var (
		runtimeOnce sync.Once
		engine      *whail.Engine
		runtimeErr  error
	)
	f.Runtime = func(ctx context.Context) (cmdutil.Runtime, error) {
		runtimeOnce.Do(func() {
			cfg, err := f.Config()
			if err != nil {
				runtimeErr = err
				return
			}
			engine, runtimeErr = whail.NewEngine(ctx, whail.EngineOptions{
				Host:             cfg.Docker.Host,
				LabelPrefix:      cfg.Docker.LabelPrefix,
				Platform:         cfg.Docker.Platform,
				StopTimeout:      cfg.Docker.StopTimeout,
				ExecPollInterval: cfg.Poll.Interval,
			})
		})
		if runtimeErr != nil {
			return nil, runtimeErr
		}
		return engine, nil
	}
	f.CloseRuntime = func() {
		if engine != nil {
			_ = engine.Close()
		}
	}

	// Observer: logs every event and records Prometheus metrics.
	reg := prometheus.NewRegistry()
	f.Gatherer = reg
	var (
		observerOnce sync.Once
		observer     observe.Observer
	)
	f.Observer = func() observe.Observer {
		observerOnce.Do(func() {
			metrics, err := observe.NewMetrics(reg)
			if err != nil {
				logger.Warn().Err(err).Msg("metrics unavailable")
				observer = observe.LogObserver{}
				return
			}
			observer = observe.Multi{observe.LogObserver{}, metrics}
		})
		return observer
	}

	return f
}
