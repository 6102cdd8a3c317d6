// gen-docs writes the settle CLI reference as Markdown and man pages.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/schmitthub/settle/internal/cmd/root"
	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/docs"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("gen-docs", pflag.ContinueOnError)

	var (
		docPath  string
		markdown bool
		manPage  bool
	)
	flags.StringVar(&docPath, "doc-path", "", "Output directory for generated docs (required)")
	flags.BoolVar(&markdown, "markdown", false, "Generate Markdown documentation")
	flags.BoolVar(&manPage, "man-page", false, "Generate man pages")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n\n%s", filepath.Base(args[0]), flags.FlagUsages())
	}

	if err := flags.Parse(args[1:]); err != nil {
		return err
	}
	if docPath == "" {
		return errors.New("--doc-path is required")
	}
	if !markdown && !manPage {
		return errors.New("at least one format must be specified (--markdown, --man-page)")
	}

	rootCmd := root.NewCmdRoot(&cmdutil.Factory{Version: "dev"})
	rootCmd.DisableAutoGenTag = true

	if markdown {
		dir := filepath.Join(docPath, "markdown")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create markdown directory: %w", err)
		}
		if err := docs.GenMarkdownTree(rootCmd, dir); err != nil {
			return fmt.Errorf("failed to generate Markdown documentation: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Generated Markdown documentation in %s\n", dir)
	}

	if manPage {
		dir := filepath.Join(docPath, "man")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create man directory: %w", err)
		}
		if err := docs.GenManTree(rootCmd, dir); err != nil {
			return fmt.Errorf("failed to generate man pages: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Generated man pages in %s\n", dir)
	}

	return nil
}
