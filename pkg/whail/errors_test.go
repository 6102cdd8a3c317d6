package whail

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDockerError_Error(t *testing.T) {
	err := &DockerError{Op: "test", Message: "test error message"}
	if err.Error() != "test error message" {
		t.Errorf("Error() = %q, want %q", err.Error(), "test error message")
	}

	wrapped := &DockerError{Op: "test", Message: "start failed", Err: errors.New("conflict")}
	if wrapped.Error() != "start failed: conflict" {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), "start failed: conflict")
	}
}

func TestDockerError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := ErrContainerStartFailed("c1", underlying)
	if !errors.Is(err, underlying) {
		t.Error("Unwrap() should return underlying error")
	}
}

func TestDockerError_FormatUserError(t *testing.T) {
	tests := []struct {
		name      string
		err       *DockerError
		wantParts []string
	}{
		{
			name:      "basic error",
			err:       &DockerError{Message: "Something failed"},
			wantParts: []string{"Error: Something failed"},
		},
		{
			name:      "with underlying error",
			err:       &DockerError{Message: "Something failed", Err: errors.New("connection refused")},
			wantParts: []string{"Error: Something failed", "Details: connection refused"},
		},
		{
			name:      "with next steps",
			err:       ErrNetworkRemoveFailed("testnet", errors.New("active endpoints")),
			wantParts: []string{"Next Steps:", "1. Remove containers still attached"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.FormatUserError()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("FormatUserError() = %q, missing %q", got, part)
				}
			}
		})
	}
}

func TestProcessError(t *testing.T) {
	err := &ProcessError{Container: "c1", Argv: []string{"cat", "/missing"}, ExitCode: 1, Lines: []string{"not found"}}
	want := `command "cat /missing" in container c1 exited with code 1: not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	code, ok := ExitCode(fmt.Errorf("probe: %w", err))
	if !ok || code != 1 {
		t.Errorf("ExitCode() = %d, %t, want 1, true", code, ok)
	}
	if _, ok := ExitCode(errors.New("other")); ok {
		t.Error("ExitCode() should not match unrelated errors")
	}
}
