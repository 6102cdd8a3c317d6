// Package harness provides helpers for tests that run against a real Docker
// daemon. Every resource it creates carries TestLabelPrefix labels so stale
// containers and networks from killed runs can be found and removed.
package harness

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/schmitthub/settle/internal/config"
	"github.com/schmitthub/settle/pkg/whail"
)

// TestLabelPrefix replaces docker.label_prefix for test resources.
const TestLabelPrefix = "dev.settle.test"

const (
	// DefaultReadyTimeout bounds readiness waits on a developer machine.
	DefaultReadyTimeout = 60 * time.Second
	// CIReadyTimeout is used when CI or GITHUB_ACTIONS is set.
	CIReadyTimeout = 180 * time.Second
	// TestImage is the image used for test nodes.
	TestImage = "alpine:3.20"
)

// RunTestMain wraps testing.M.Run with cleanup of test-labeled Docker
// resources before and after the run, including on SIGINT/SIGTERM. It holds
// an exclusive lock so concurrent runs do not remove each other's resources.
//
//	func TestMain(m *testing.M) { os.Exit(harness.RunTestMain(m)) }
func RunTestMain(m *testing.M) int {
	lock, err := acquireTestLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	defer func() { _ = lock.Unlock() }()

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		engine, err := newEngine(ctx)
		if err != nil {
			return
		}
		defer engine.Close()
		_ = CleanupTestResources(ctx, engine)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cleanup()
		os.Exit(1)
	}()

	cleanup()
	code := m.Run()
	signal.Stop(sig)
	cleanup()
	return code
}

func acquireTestLock() (*flock.Flock, error) {
	lockDir := filepath.Join(os.TempDir(), "settle-tests")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create lock directory: %w", err)
	}
	lock := flock.New(filepath.Join(lockDir, "integration-test.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another integration test run is active (lock: %s)", lock.Path())
	}
	return lock, nil
}

// RequireDocker skips the test if Docker is not available.
func RequireDocker(t *testing.T) {
	t.Helper()
	if !isDockerAvailable() {
		t.Skip("Docker is not available, skipping test")
	}
}

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	engine, err := newEngine(ctx)
	if err != nil {
		return false
	}
	_ = engine.Close()
	return true
}

func newEngine(ctx context.Context) (*whail.Engine, error) {
	return whail.NewEngine(ctx, whail.EngineOptions{
		LabelPrefix:      TestLabelPrefix,
		ExecPollInterval: 20 * time.Millisecond,
	})
}

// NewEngine returns an engine that labels everything as a test resource.
// It is closed when the test completes.
func NewEngine(t *testing.T) *whail.Engine {
	t.Helper()
	RequireDocker(t)

	engine, err := newEngine(context.Background())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

// Config returns the default configuration with test labels and a short
// poll interval.
func Config() *config.Config {
	cfg := config.Default()
	cfg.Docker.LabelPrefix = TestLabelPrefix
	cfg.Poll.Interval = 100 * time.Millisecond
	cfg.Poll.Timeout = GetReadyTimeout()
	return cfg
}

// UniqueName returns prefix followed by a short random suffix.
func UniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// GetReadyTimeout returns $SETTLE_READY_TIMEOUT seconds, CIReadyTimeout on
// CI, or DefaultReadyTimeout.
func GetReadyTimeout() time.Duration {
	if v := os.Getenv("SETTLE_READY_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true" {
		return CIReadyTimeout
	}
	return DefaultReadyTimeout
}

// CleanupTestResources force-removes every container and network managed
// under TestLabelPrefix.
func CleanupTestResources(ctx context.Context, engine *whail.Engine) error {
	managed := map[string]string{engine.ManagedLabelKey(): "true"}
	containers, err := engine.ListContainers(ctx, managed)
	if err != nil {
		return err
	}
	for _, c := range containers {
		_ = engine.RemoveContainer(ctx, c.ID, true)
	}

	networks, err := engine.Client().NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", engine.ManagedLabelKey()+"=true")),
	})
	if err != nil {
		return err
	}
	for _, n := range networks {
		_ = engine.RemoveNetwork(ctx, n.Name)
	}
	return nil
}
