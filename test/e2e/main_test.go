package e2e

import (
	"os"
	"testing"

	"github.com/schmitthub/settle/test/harness"
)

func TestMain(m *testing.M) {
	os.Exit(harness.RunTestMain(m))
}
