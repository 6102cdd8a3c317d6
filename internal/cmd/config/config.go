package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/config"
)

// NewCmdConfig creates the config command group.
func NewCmdConfig(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the settle configuration",
		Long: `Settle reads ` + config.FileName + ` from the working directory or the user config
directory. Every key can be overridden with a SETTLE_ environment variable,
for example SETTLE_POLL_TIMEOUT=30s or SETTLE_RETRY_DELAY=500ms.`,
	}

	cmd.AddCommand(newCmdPrint(f))
	cmd.AddCommand(newCmdInit(f))
	cmd.AddCommand(newCmdKeys(f))

	return cmd
}

func newCmdPrint(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.Config()
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = f.IOStreams.Out.Write(out)
			return err
		},
	}
}

// InitOptions holds options for the config init command.
type InitOptions struct {
	Path  string
	Force bool
}

func newCmdInit(f *cmdutil.Factory) *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Example: `  settle config init
  settle config init --path ./settle.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Path
			if path == "" {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.FileName)
			}
			if err := config.Default().Write(path, !opts.Force); err != nil {
				return err
			}
			cs := f.IOStreams.ColorScheme()
			fmt.Fprintf(f.IOStreams.Out, "%s wrote %s\n", cs.SuccessIcon(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "Where to write the file (default: the user config directory)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing file")

	return cmd
}

func newCmdKeys(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every configuration key",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range config.Keys() {
				fmt.Fprintln(f.IOStreams.Out, k)
			}
		},
	}
}
