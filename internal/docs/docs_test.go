package docs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "settle", Short: "Wait for clusters to settle", Long: "Root long text."}
	root.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")

	cluster := &cobra.Command{Use: "cluster", Short: "Bring clusters up and down"}
	up := &cobra.Command{
		Use:     "up -f FILE",
		Short:   "Create a cluster",
		Example: "  settle cluster up -f cluster.yaml",
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	up.Flags().StringP("file", "f", "", "Cluster file")
	up.Flags().Duration("timeout", 0, "Maximum time to wait")
	hidden := &cobra.Command{Use: "internal", Hidden: true, Run: func(*cobra.Command, []string) {}}

	cluster.AddCommand(up)
	root.AddCommand(cluster, hidden)
	return root
}

func findCmd(t *testing.T, root *cobra.Command, args ...string) *cobra.Command {
	t.Helper()
	c, _, err := root.Find(args)
	require.NoError(t, err)
	return c
}

func TestGenMarkdown(t *testing.T) {
	root := testTree()
	var buf bytes.Buffer
	require.NoError(t, GenMarkdown(findCmd(t, root, "cluster", "up"), &buf))

	out := buf.String()
	assert.Contains(t, out, "## settle cluster up\n")
	assert.Contains(t, out, "settle cluster up -f FILE [flags]")
	assert.Contains(t, out, "### Examples")
	assert.Contains(t, out, "-f, --file string")
	assert.Contains(t, out, "### Global options")
	assert.Contains(t, out, "[settle cluster](settle_cluster.md)")
}

func TestGenMarkdown_ListsVisibleCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenMarkdown(testTree(), &buf))

	out := buf.String()
	assert.Contains(t, out, "* [settle cluster](settle_cluster.md) - Bring clusters up and down")
	assert.NotContains(t, out, "internal")
}

func TestGenMarkdownTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, GenMarkdownTree(testTree(), dir))

	for _, name := range []string{"settle.md", "settle_cluster.md", "settle_cluster_up.md"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "settle_internal.md"))
}

func TestManSource(t *testing.T) {
	root := testTree()
	src := string(manSource(findCmd(t, root, "cluster", "up"), &ManHeader{Section: "1", Manual: "Settle Manual"}))

	assert.Contains(t, src, "% SETTLE-CLUSTER-UP(1)  | Settle Manual")
	assert.Contains(t, src, "settle cluster up \\- Create a cluster")
	assert.Contains(t, src, "**-f**, **--file** <string>")
	assert.Contains(t, src, "**--timeout** <duration>")
	assert.NotContains(t, src, "(default: 0s)")
	assert.Contains(t, src, "**-D**, **--debug**\n")
	assert.Contains(t, src, "# SEE ALSO\n**settle-cluster(1)**")
}

func TestGenManTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, GenManTree(testTree(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "settle-cluster-up.1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".TH")
	assert.FileExists(t, filepath.Join(dir, "settle.1"))
}
