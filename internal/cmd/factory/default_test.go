package factory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitthub/settle/internal/config"
)

func TestNew(t *testing.T) {
	f := New("1.0.0", "abc123")

	assert.Equal(t, "1.0.0", f.Version)
	assert.Equal(t, "abc123", f.Commit)
	assert.NotNil(t, f.IOStreams)
	assert.NotNil(t, f.Gatherer)
}

func TestFactory_ConfigIsLoadedOnce(t *testing.T) {
	t.Setenv(config.ConfigDirEnv, t.TempDir())
	path := filepath.Join(t.TempDir(), "settle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: 120ms\n"), 0o644))

	f := New("dev", "none")
	f.ConfigFile = path

	cfg, err := f.Config()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Millisecond, cfg.Poll.Interval)

	again, err := f.Config()
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func TestFactory_ObserverRecordsMetrics(t *testing.T) {
	f := New("dev", "none")

	obs := f.Observer()
	require.NotNil(t, obs)
	assert.Equal(t, obs, f.Observer())

	families, err := f.Gatherer.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "vector metrics appear once observed")
}
