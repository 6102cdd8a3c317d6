package whail

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/schmitthub/settle/pkg/callback"
	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/observe"
	"github.com/schmitthub/settle/pkg/poll"
)

// execExitTimeout bounds the wait for the daemon to report an exit code
// after the exec output stream has closed.
const execExitTimeout = 10 * time.Second

// Exec runs argv in the container and collects its combined output.
// A non-zero exit code is returned as a *ProcessError together with the result.
func (e *Engine) Exec(ctx context.Context, id string, argv []string) (ExecResult, error) {
	if len(argv) == 0 {
		return ExecResult{}, ErrContainerExecFailed(id, fmt.Errorf("empty command"))
	}
	lines := callback.NewCollector[string]()
	execID, err := e.ExecStream(ctx, id, argv, lines)
	if err != nil {
		return ExecResult{}, err
	}
	out, err := lines.Await(ctx)
	if err != nil {
		return ExecResult{}, ErrContainerExecFailed(id, err)
	}

	code, err := e.execExitCode(ctx, id, execID)
	if err != nil {
		return ExecResult{}, err
	}
	res := ExecResult{ExitCode: code, Lines: trimLines(out)}
	if code != 0 {
		return res, &ProcessError{Container: id, Argv: argv, ExitCode: code, Lines: res.Lines}
	}
	return res, nil
}

// ExecStream starts argv in the container and returns the exec ID. Output
// lines, stdout and stderr interleaved, are delivered to cb from a separate
// goroutine as they arrive; the stream finishes when the process closes its
// output. Use the returned ID with ExecExitCode to learn how it exited.
func (e *Engine) ExecStream(ctx context.Context, id string, argv []string, cb callback.Callback[string]) (string, error) {
	created, err := e.api.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", ErrContainerExecFailed(id, err)
	}
	hijacked, err := e.api.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return "", ErrContainerExecFailed(id, err)
	}
	go func() {
		defer hijacked.Close()
		demuxLines(hijacked.Reader, cb)
	}()
	return created.ID, nil
}

// ExecExitCode waits until the exec has finished and returns its exit code.
func (e *Engine) ExecExitCode(ctx context.Context, containerID, execID string) (int, error) {
	return e.execExitCode(ctx, containerID, execID)
}

func (e *Engine) execExitCode(ctx context.Context, containerID, execID string) (int, error) {
	var last container.ExecInspect
	finished := check.NewPredicate("exec "+execID+" finished", func(ctx context.Context) check.PredicateResult {
		resp, err := e.api.ContainerExecInspect(ctx, execID)
		if err != nil {
			return check.PredicateResult{Result: check.Failure[bool](err), Message: err.Error()}
		}
		last = resp
		return check.PredicateResult{
			Result:  check.Success(!resp.Running),
			Message: fmt.Sprintf("exec running=%t exit code=%d", resp.Running, resp.ExitCode),
		}
	})
	p := poll.New(
		poll.WithInterval(e.options.ExecPollInterval),
		poll.WithObserver(observe.Noop{}),
		poll.WithErrorLimit(3),
	)
	if _, err := p.WaitUntil(ctx, finished, execExitTimeout); err != nil {
		return -1, ErrContainerExecFailed(containerID, err)
	}
	return last.ExitCode, nil
}

// demuxLines splits a multiplexed Docker stream into lines and finishes cb.
func demuxLines(r io.Reader, cb callback.Callback[string]) {
	w := callback.LineWriter(cb)
	_, err := stdcopy.StdCopy(w, w, r)
	_ = w.Close()
	if err != nil {
		cb.OnError(err)
		return
	}
	cb.OnComplete()
}

func trimLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, "\r\n")
	}
	return out
}
