package whail

import (
	"errors"
	"fmt"
	"strings"
)

// DockerError represents a user-friendly Docker error with remediation steps.
// It wraps underlying Docker SDK errors with context and actionable guidance.
type DockerError struct {
	Op        string   // Operation that failed (e.g., "create", "start", "exec")
	Err       error    // Underlying error
	Message   string   // Human-readable message
	NextSteps []string // Suggested remediation steps
}

func (e *DockerError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DockerError) Unwrap() error {
	return e.Err
}

// FormatUserError formats the error for display to users with next steps.
func (e *DockerError) FormatUserError() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", e.Message)

	if e.Err != nil {
		fmt.Fprintf(&sb, "  Details: %s\n", e.Err.Error())
	}

	if len(e.NextSteps) > 0 {
		sb.WriteString("\nNext Steps:\n")
		for i, step := range e.NextSteps {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}

	return sb.String()
}

// ProcessError reports a command that ran inside a container and exited
// with a non-zero status.
type ProcessError struct {
	Container string
	Argv      []string
	ExitCode  int
	// Lines holds the combined stdout and stderr output, one entry per line.
	Lines []string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("command %q in container %s exited with code %d", strings.Join(e.Argv, " "), e.Container, e.ExitCode)
	if len(e.Lines) > 0 {
		msg += ": " + e.Lines[len(e.Lines)-1]
	}
	return msg
}

// ExitCode extracts the exit code from a *ProcessError in err's chain.
func ExitCode(err error) (int, bool) {
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe.ExitCode, true
	}
	return 0, false
}

// ErrDockerNotRunning returns an error for when Docker daemon is not accessible.
func ErrDockerNotRunning(err error) *DockerError {
	return &DockerError{
		Op:      "connect",
		Err:     err,
		Message: "Cannot connect to Docker daemon",
		NextSteps: []string{
			"Ensure Docker is installed and running",
			"Check DOCKER_HOST or the docker.host setting",
			"Check if Docker socket is accessible: ls -la /var/run/docker.sock",
		},
	}
}

// ErrInvalidImageRef returns an error for an image reference that cannot be parsed.
func ErrInvalidImageRef(ref string, err error) *DockerError {
	return &DockerError{
		Op:      "parse",
		Err:     err,
		Message: fmt.Sprintf("Invalid image reference '%s'", ref),
	}
}

// ErrImagePullFailed returns an error for when an image cannot be pulled.
func ErrImagePullFailed(image string, err error) *DockerError {
	return &DockerError{
		Op:      "pull",
		Err:     err,
		Message: fmt.Sprintf("Failed to pull image '%s'", image),
		NextSteps: []string{
			"Check the image name and tag are correct",
			"Verify you have network access to the registry",
			"Try pulling manually: docker pull " + image,
		},
	}
}

// ErrInvalidContainerOptions returns an error for options that cannot be
// translated into a container configuration.
func ErrInvalidContainerOptions(name string, err error) *DockerError {
	return &DockerError{
		Op:      "create",
		Err:     err,
		Message: fmt.Sprintf("Invalid options for container '%s'", name),
	}
}

// ErrContainerCreateFailed returns an error for when container creation fails.
func ErrContainerCreateFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "create",
		Err:     err,
		Message: fmt.Sprintf("Failed to create container '%s'", name),
		NextSteps: []string{
			"Check that the container name is not already in use",
			"Verify the network exists: docker network ls",
		},
	}
}

// ErrContainerStartFailed returns an error for when a container fails to start.
func ErrContainerStartFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "start",
		Err:     err,
		Message: fmt.Sprintf("Failed to start container '%s'", name),
		NextSteps: []string{
			"Check container logs: docker logs " + name,
			"Verify the image entrypoint is valid",
		},
	}
}

// ErrContainerStopFailed returns an error for when stopping a container fails.
func ErrContainerStopFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "stop",
		Err:     err,
		Message: fmt.Sprintf("Failed to stop container '%s'", name),
	}
}

// ErrContainerKillFailed returns an error for when killing a container fails.
func ErrContainerKillFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "kill",
		Err:     err,
		Message: fmt.Sprintf("Failed to kill container '%s'", name),
	}
}

// ErrContainerRemoveFailed returns an error for when removing a container fails.
func ErrContainerRemoveFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "remove",
		Err:     err,
		Message: fmt.Sprintf("Failed to remove container '%s'", name),
		NextSteps: []string{
			"Stop the container first or remove it with force",
		},
	}
}

// ErrContainerNotManaged returns an error for a container that exists but
// does not carry the managed label.
func ErrContainerNotManaged(name string) *DockerError {
	return &DockerError{
		Op:      "verify",
		Message: fmt.Sprintf("Container '%s' is not managed by settle", name),
		NextSteps: []string{
			"Only containers created by settle can be modified through it",
		},
	}
}

// ErrContainerInspectFailed returns an error for when inspecting a container fails.
func ErrContainerInspectFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "inspect",
		Err:     err,
		Message: fmt.Sprintf("Failed to inspect container '%s'", name),
	}
}

// ErrContainerListFailed returns an error for when listing containers fails.
func ErrContainerListFailed(err error) *DockerError {
	return &DockerError{
		Op:      "list",
		Err:     err,
		Message: "Failed to list containers",
	}
}

// ErrContainerLogsFailed returns an error for when reading container logs fails.
func ErrContainerLogsFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "logs",
		Err:     err,
		Message: fmt.Sprintf("Failed to read logs of container '%s'", name),
	}
}

// ErrContainerExecFailed returns an error for when an exec cannot be created
// or its output cannot be read.
func ErrContainerExecFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "exec",
		Err:     err,
		Message: fmt.Sprintf("Failed to exec in container '%s'", name),
		NextSteps: []string{
			"Verify the container is running: docker ps",
		},
	}
}

// ErrCopyToContainerFailed returns an error for when copying into a container fails.
func ErrCopyToContainerFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "copy",
		Err:     err,
		Message: fmt.Sprintf("Failed to copy file to container '%s'", name),
	}
}

// ErrNetworkCreateFailed returns an error for when network creation fails.
func ErrNetworkCreateFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "create",
		Err:     err,
		Message: fmt.Sprintf("Failed to create network '%s'", name),
		NextSteps: []string{
			"Check that the subnet does not overlap an existing network: docker network ls",
		},
	}
}

// ErrNetworkRemoveFailed returns an error for when network removal fails.
func ErrNetworkRemoveFailed(name string, err error) *DockerError {
	return &DockerError{
		Op:      "remove",
		Err:     err,
		Message: fmt.Sprintf("Failed to remove network '%s'", name),
		NextSteps: []string{
			"Remove containers still attached to the network first",
		},
	}
}

// ErrNetworkNotManaged returns an error for a network without the managed label.
func ErrNetworkNotManaged(name string) *DockerError {
	return &DockerError{
		Op:      "verify",
		Message: fmt.Sprintf("Network '%s' is not managed by settle", name),
	}
}
