package cmdutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/schmitthub/settle/internal/iostreams"
	"github.com/schmitthub/settle/pkg/poll"
	"github.com/schmitthub/settle/pkg/whail"
)

// ExitError carries the exit status a command wants the process to end
// with, e.g. the exit code of a command run inside a container. Commands
// return it instead of calling os.Exit so deferred cleanup runs.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// FlagError indicates bad flags or arguments.
type FlagError struct {
	err error
}

func (e *FlagError) Error() string { return e.err.Error() }
func (e *FlagError) Unwrap() error { return e.err }

// FlagErrorf creates a FlagError with a formatted message.
func FlagErrorf(format string, args ...any) error {
	return &FlagError{err: fmt.Errorf(format, args...)}
}

// SilentError signals that the error has already been displayed to the user.
var SilentError = errors.New("SilentError")

// HandleError prints err to stderr. Timeouts get the last observed state,
// Docker errors their remediation steps. Wait failures are matched first
// because they wrap the Docker error of the last evaluation.
func HandleError(ios *iostreams.IOStreams, err error) {
	if err == nil || errors.Is(err, SilentError) {
		return
	}
	cs := ios.ColorScheme()

	var timeout *poll.TimeoutError
	if errors.As(err, &timeout) {
		fmt.Fprintf(ios.ErrOut, "%s timed out after %s waiting for %s\n", cs.FailureIcon(),
			timeout.Waited.Round(time.Millisecond), timeout.Label)
		if timeout.Message != "" {
			fmt.Fprintf(ios.ErrOut, "  last state: %s\n", timeout.Message)
		}
		return
	}
	var evalErr *poll.EvaluationError
	if errors.As(err, &evalErr) {
		fmt.Fprintf(ios.ErrOut, "%s %s\n", cs.FailureIcon(), evalErr)
		return
	}
	var dockerErr *whail.DockerError
	if errors.As(err, &dockerErr) {
		fmt.Fprint(ios.ErrOut, dockerErr.FormatUserError())
		return
	}
	fmt.Fprintf(ios.ErrOut, "%s %s\n", cs.FailureIcon(), err)
}
