package whail

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"

	"github.com/schmitthub/settle/pkg/callback"
)

// Logs returns everything the container has written to stdout and stderr.
func (e *Engine) Logs(ctx context.Context, id string) (string, error) {
	text := callback.NewText()
	if err := e.StreamLogs(ctx, id, false, text); err != nil {
		return "", err
	}
	out, err := text.Await(ctx)
	if err != nil {
		return "", ErrContainerLogsFailed(id, err)
	}
	return out, nil
}

// StreamLogs delivers the container's log lines to cb from a separate
// goroutine. With follow set the stream stays open until the container
// stops or ctx is canceled.
func (e *Engine) StreamLogs(ctx context.Context, id string, follow bool, cb callback.Callback[string]) error {
	info, err := e.api.ContainerInspect(ctx, id)
	if err != nil {
		return ErrContainerInspectFailed(id, err)
	}
	tty := info.Config != nil && info.Config.Tty

	rc, err := e.api.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	})
	if err != nil {
		return ErrContainerLogsFailed(id, err)
	}
	go func() {
		defer rc.Close()
		if tty {
			rawLines(rc, cb)
			return
		}
		demuxLines(rc, cb)
	}()
	return nil
}

// rawLines forwards a non-multiplexed stream, as produced for TTY containers.
func rawLines(r io.Reader, cb callback.Callback[string]) {
	w := callback.LineWriter(cb)
	_, err := io.Copy(w, r)
	_ = w.Close()
	if err != nil {
		cb.OnError(err)
		return
	}
	cb.OnComplete()
}
