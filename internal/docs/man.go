package docs

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ManHeader is the metadata of a man page.
type ManHeader struct {
	Section string
	Date    *time.Time
	Manual  string
}

// GenManTree writes a section 1 man page per visible command under dir.
func GenManTree(cmd *cobra.Command, dir string) error {
	header := &ManHeader{Section: "1", Manual: "Settle Manual"}
	return walk(cmd, func(c *cobra.Command) error {
		return writeFile(filepath.Join(dir, manFilename(c, header.Section)), func(w io.Writer) error {
			return GenMan(c, header, w)
		})
	})
}

// GenMan renders the man page of a single command.
func GenMan(cmd *cobra.Command, header *ManHeader, w io.Writer) error {
	if header == nil {
		header = &ManHeader{}
	}
	if header.Section == "" {
		header.Section = "1"
	}
	_, err := w.Write(md2man.Render(manSource(cmd, header)))
	return err
}

// manSource builds the md2man input for cmd.
func manSource(cmd *cobra.Command, header *ManHeader) []byte {
	cmd.InitDefaultHelpFlag()

	buf := new(bytes.Buffer)
	name := cmd.CommandPath()

	date := ""
	if header.Date != nil {
		date = header.Date.Format("Jan 2006")
	}
	fmt.Fprintf(buf, "%% %s(%s) %s | %s\n\n", strings.ToUpper(strings.ReplaceAll(name, " ", "-")), header.Section, date, header.Manual)

	short := cmd.Short
	if short == "" {
		short = "manual page for " + name
	}
	fmt.Fprintf(buf, "# NAME\n%s \\- %s\n\n", name, short)

	buf.WriteString("# SYNOPSIS\n**" + name + "**")
	if cmd.NonInheritedFlags().HasAvailableFlags() {
		buf.WriteString(" [OPTIONS]")
	}
	if cmd.HasAvailableSubCommands() {
		buf.WriteString(" COMMAND")
	}
	buf.WriteString("\n\n")

	if cmd.Long != "" {
		buf.WriteString("# DESCRIPTION\n" + cmd.Long + "\n\n")
	}

	if subs := visibleCommands(cmd); len(subs) > 0 {
		buf.WriteString("# COMMANDS\n")
		for _, c := range subs {
			fmt.Fprintf(buf, "**%s**\n: %s\n\n", c.Name(), c.Short)
		}
	}

	local, inherited := cmd.NonInheritedFlags(), cmd.InheritedFlags()
	if local.HasAvailableFlags() || inherited.HasAvailableFlags() {
		buf.WriteString("# OPTIONS\n")
		manFlags(buf, local)
		manFlags(buf, inherited)
	}

	if cmd.Example != "" {
		buf.WriteString("# EXAMPLES\n```\n" + cmd.Example + "\n```\n\n")
	}

	var related []string
	if cmd.HasParent() {
		related = append(related, manRef(cmd.Parent(), header.Section))
	}
	for _, c := range visibleCommands(cmd) {
		related = append(related, manRef(c, header.Section))
	}
	if len(related) > 0 {
		buf.WriteString("# SEE ALSO\n" + strings.Join(related, ", ") + "\n")
	}

	return buf.Bytes()
}

func manFlags(buf *bytes.Buffer, flags *pflag.FlagSet) {
	var list []*pflag.Flag
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			list = append(list, f)
		}
	})
	slices.SortFunc(list, func(a, b *pflag.Flag) int { return strings.Compare(a.Name, b.Name) })

	for _, f := range list {
		if f.Shorthand != "" {
			fmt.Fprintf(buf, "**-%s**, **--%s**", f.Shorthand, f.Name)
		} else {
			fmt.Fprintf(buf, "**--%s**", f.Name)
		}
		if typ := f.Value.Type(); typ != "bool" {
			fmt.Fprintf(buf, " <%s>", typ)
		}
		buf.WriteString("\n: " + f.Usage)
		switch f.DefValue {
		case "", "false", "0", "0s", "[]":
		default:
			fmt.Fprintf(buf, " (default: %s)", f.DefValue)
		}
		buf.WriteString("\n\n")
	}
}

func manRef(cmd *cobra.Command, section string) string {
	return fmt.Sprintf("**%s(%s)**", strings.ReplaceAll(cmd.CommandPath(), " ", "-"), section)
}

func manFilename(cmd *cobra.Command, section string) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", "-") + "." + section
}
