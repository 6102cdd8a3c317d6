package whail

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/schmitthub/settle/pkg/callback"
	"github.com/schmitthub/settle/pkg/logger"
)

// NormalizeImageRef returns the fully qualified form of ref, defaulting the
// tag to "latest": "alpine" becomes "docker.io/library/alpine:latest".
func NormalizeImageRef(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", ErrInvalidImageRef(ref, err)
	}
	return reference.TagNameOnly(named).String(), nil
}

// EnsureImage pulls ref unless it is already present locally.
func (e *Engine) EnsureImage(ctx context.Context, ref, platform string) error {
	_, err := e.api.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return ErrImagePullFailed(ref, err)
	}

	logger.Debug().Str("image", ref).Msg("image not present locally, pulling")
	progress := callback.NewCollector[jsonmessage.JSONMessage]()
	if err := e.PullImage(ctx, ref, platform, progress); err != nil {
		return err
	}
	msgs, err := progress.Await(ctx)
	if err != nil {
		return ErrImagePullFailed(ref, err)
	}
	if n := len(msgs); n > 0 {
		logger.Debug().Str("image", ref).Str("status", msgs[n-1].Status).Msg("image pulled")
	}
	return nil
}

// PullImage starts pulling ref and returns once the daemon accepted the
// request. Progress messages are delivered to cb from a separate goroutine;
// the stream finishes with OnComplete, or OnError if the daemon reports a
// pull error.
func (e *Engine) PullImage(ctx context.Context, ref, platform string, cb callback.Callback[jsonmessage.JSONMessage]) error {
	if platform == "" {
		platform = e.options.Platform
	}
	rc, err := e.api.ImagePull(ctx, ref, image.PullOptions{Platform: platform})
	if err != nil {
		return ErrImagePullFailed(ref, err)
	}
	go func() {
		defer rc.Close()
		decodePullStream(rc, cb)
	}()
	return nil
}

func decodePullStream(r io.Reader, cb callback.Callback[jsonmessage.JSONMessage]) {
	dec := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				cb.OnComplete()
			} else {
				cb.OnError(err)
			}
			return
		}
		if msg.Error != nil {
			cb.OnError(msg.Error)
			return
		}
		cb.OnNext(msg)
	}
}
