package loggertest_test

import (
	"strings"
	"testing"

	"github.com/schmitthub/settle/pkg/logger/loggertest"
)

func TestNew_CapturesOutput(t *testing.T) {
	tl := loggertest.New()

	tl.Info().Msg("hello world")

	if !strings.Contains(tl.Output(), "hello world") {
		t.Errorf("Output() should contain logged message, got %q", tl.Output())
	}
}

func TestNew_Reset(t *testing.T) {
	tl := loggertest.New()

	tl.Info().Msg("first message")
	tl.Reset()
	tl.Info().Msg("second message")

	output := tl.Output()
	if strings.Contains(output, "first message") {
		t.Error("Reset() should clear previous output")
	}
	if !strings.Contains(output, "second message") {
		t.Errorf("Output() should contain message logged after reset, got %q", output)
	}
}

func TestNew_LoggerShared(t *testing.T) {
	tl := loggertest.New()

	tl.Logger().Trace().Msg("trace line")

	if !strings.Contains(tl.Output(), "trace line") {
		t.Errorf("Logger() should write into the same buffer, got %q", tl.Output())
	}
}

func TestNewNop_DiscardsOutput(t *testing.T) {
	tl := loggertest.NewNop()

	tl.Error().Msg("should not appear")

	if tl.Output() != "" {
		t.Errorf("NewNop should discard output, got %q", tl.Output())
	}
}
