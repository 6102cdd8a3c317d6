package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/internal/cmdutil"
	"github.com/schmitthub/settle/internal/iostreams/iostreamstest"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{name: "version only", version: "1.2.3", want: "settle version 1.2.3\n"},
		{name: "leading v", version: "v1.2.3", commit: "abc123", want: "settle version 1.2.3 (abc123)\n"},
		{name: "dev build", version: "dev", commit: "none", want: "settle version dev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.version, tt.commit))
		})
	}
}

func TestNewCmdVersion(t *testing.T) {
	ios := iostreamstest.New()
	cmd := NewCmdVersion(&cmdutil.Factory{IOStreams: ios.IOStreams, Version: "0.3.0", Commit: "f00"})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "settle version 0.3.0 (f00)\n", ios.OutBuf.String())
}
