package root

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clustercmd "github.com/schmitthub/settle/internal/cmd/cluster"
	configcmd "github.com/schmitthub/settle/internal/cmd/config"
	execcmd "github.com/schmitthub/settle/internal/cmd/exec"
	logscmd "github.com/schmitthub/settle/internal/cmd/logs"
	versioncmd "github.com/schmitthub/settle/internal/cmd/version"
	waitcmd "github.com/schmitthub/settle/internal/cmd/wait"
	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/pkg/logger"
)

// NewCmdRoot creates the root command for the settle CLI.
func NewCmdRoot(f *cmdutil.Factory) *cobra.Command {
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Wait for Docker test clusters to settle",
		Long: `Settle brings up throwaway Docker clusters for integration tests and waits,
with deadlines, until containers are running, logs show what you expect, or
commands inside them succeed.

Quick start:
  settle cluster up -f cluster.yaml      # create the network and nodes, wait until ready
  settle wait log kv-redis "Ready to accept connections"
  settle exec kv-redis -- redis-cli ping
  settle cluster down kv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations: map[string]string{
			"versionInfo": versioncmd.Format(f.Version, f.Commit),
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			if path, _ := root.PersistentFlags().GetString("config"); path != "" {
				f.ConfigFile = path
			}
			f.ConfigFlags = map[string]*pflag.Flag{
				"debug": root.PersistentFlags().Lookup("debug"),
			}
			initializeLogger(f)

			logger.Debug().
				Str("version", f.Version).
				Str("command", cmd.CommandPath()).
				Msg("settle starting")
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" || f.Gatherer == nil {
				return nil
			}
			if err := prometheus.WriteToTextfile(metricsFile, f.Gatherer); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
			return nil
		},
		Version: f.Version,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to "+config.FileName+" (default: search the working directory, then the user config directory)")
	cmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write wait and retry metrics in Prometheus text format to this file")

	cmd.SetVersionTemplate(versioncmd.Format(f.Version, f.Commit))
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cmdutil.FlagErrorf("%w", err)
	})

	cmd.AddCommand(waitcmd.NewCmdWait(f))
	cmd.AddCommand(execcmd.NewCmdExec(f, nil))
	cmd.AddCommand(logscmd.NewCmdLogs(f, nil))
	cmd.AddCommand(clustercmd.NewCmdCluster(f))
	cmd.AddCommand(configcmd.NewCmdConfig(f))
	cmd.AddCommand(versioncmd.NewCmdVersion(f))

	return cmd
}

// initializeLogger sets up console and file logging from the configuration.
// Falls back to console-only logging on any error; commands that need the
// configuration report the error themselves.
func initializeLogger(f *cmdutil.Factory) {
	if f.Config == nil {
		logger.Init(false)
		return
	}
	cfg, err := f.Config()
	if err != nil {
		logger.Init(false)
		logger.Debug().Err(err).Msg("file logging unavailable: failed to load configuration")
		return
	}

	logsDir, err := cfg.LogsDir()
	if err != nil {
		logger.Init(cfg.Debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to get logs directory")
		return
	}

	if err := logger.InitWithFile(cfg.Debug, logsDir, cfg.Logging.Logger()); err != nil {
		logger.Init(cfg.Debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to initialize file writer")
	}
}
