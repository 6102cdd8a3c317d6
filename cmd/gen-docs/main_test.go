package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, run([]string{"gen-docs", "--doc-path", dir, "--markdown", "--man-page"}))

	manFiles, err := filepath.Glob(filepath.Join(dir, "man", "*.1"))
	require.NoError(t, err)
	require.NotEmpty(t, manFiles)

	manContent, err := os.ReadFile(filepath.Join(dir, "man", "settle-cluster-up.1"))
	require.NoError(t, err)
	require.Contains(t, string(manContent), `\fBsettle cluster up`)

	mdContent, err := os.ReadFile(filepath.Join(dir, "markdown", "settle_wait_log.md"))
	require.NoError(t, err)
	require.Contains(t, string(mdContent), "## settle wait log")
	require.Contains(t, string(mdContent), "--timeout duration")
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing doc-path", args: []string{"gen-docs", "--markdown"}, wantErr: "--doc-path is required"},
		{name: "no format specified", args: []string{"gen-docs", "--doc-path", t.TempDir()}, wantErr: "at least one format must be specified"},
		{name: "unknown flag", args: []string{"gen-docs", "--yaml"}, wantErr: "unknown flag: --yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
