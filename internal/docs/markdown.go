// Package docs renders reference pages for the settle command tree as
// Markdown and man pages.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// GenMarkdownTree writes one Markdown page per visible command under dir.
// Pages are named after the command path, e.g. settle_cluster_up.md.
func GenMarkdownTree(cmd *cobra.Command, dir string) error {
	return walk(cmd, func(c *cobra.Command) error {
		return writeFile(filepath.Join(dir, markdownFilename(c.CommandPath())), func(w io.Writer) error {
			return GenMarkdown(c, w)
		})
	})
}

// GenMarkdown writes the Markdown page of a single command.
func GenMarkdown(cmd *cobra.Command, w io.Writer) error {
	cmd.InitDefaultHelpFlag()

	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "## %s\n\n", cmd.CommandPath())
	if cmd.Short != "" {
		buf.WriteString(cmd.Short + "\n\n")
	}

	if cmd.Runnable() || cmd.HasAvailableSubCommands() {
		buf.WriteString("### Synopsis\n\n")
		if cmd.Long != "" {
			buf.WriteString(cmd.Long + "\n\n")
		}
		if cmd.Runnable() {
			fmt.Fprintf(buf, "```\n%s\n```\n\n", cmd.UseLine())
		}
	}

	if cmd.Example != "" {
		fmt.Fprintf(buf, "### Examples\n\n```\n%s\n```\n\n", cmd.Example)
	}

	if subs := visibleCommands(cmd); len(subs) > 0 {
		buf.WriteString("### Commands\n\n")
		for _, c := range subs {
			fmt.Fprintf(buf, "* [%s](%s) - %s\n", c.CommandPath(), markdownFilename(c.CommandPath()), c.Short)
		}
		buf.WriteString("\n")
	}

	if flags := cmd.NonInheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "### Options\n\n```\n%s```\n\n", flags.FlagUsages())
	}
	if flags := cmd.InheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "### Global options\n\n```\n%s```\n\n", flags.FlagUsages())
	}

	if cmd.HasParent() {
		parent := cmd.Parent()
		fmt.Fprintf(buf, "### See also\n\n* [%s](%s) - %s\n", parent.CommandPath(), markdownFilename(parent.CommandPath()), parent.Short)
	}

	_, err := buf.WriteTo(w)
	return err
}

func markdownFilename(cmdPath string) string {
	return strings.ReplaceAll(cmdPath, " ", "_") + ".md"
}

// visibleCommands returns the non-hidden subcommands of cmd sorted by name,
// without cobra's generated help and completion commands.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *cobra.Command) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// walk calls fn for cmd and every visible descendant, children first.
func walk(cmd *cobra.Command, fn func(*cobra.Command) error) error {
	for _, c := range visibleCommands(cmd) {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return fn(cmd)
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
