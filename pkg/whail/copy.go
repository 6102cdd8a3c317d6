package whail

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
)

// CopyFileToContainer writes content to the absolute path dst inside the
// container. Missing parent directories are created by extracting the
// archive into the nearest existing ancestor, so the container does not
// need to be running.
func (e *Engine) CopyFileToContainer(ctx context.Context, id, dst, content string) error {
	dir, name, err := splitDestination(dst)
	if err != nil {
		return ErrCopyToContainerFailed(id, err)
	}
	now := time.Now()
	for {
		archive, err := fileArchive(name, content, now)
		if err != nil {
			return ErrCopyToContainerFailed(id, err)
		}
		err = e.api.CopyToContainer(ctx, id, dir, archive, container.CopyToContainerOptions{})
		if err == nil {
			return nil
		}
		if !cerrdefs.IsNotFound(err) || dir == "/" {
			return ErrCopyToContainerFailed(id, err)
		}
		name = path.Join(path.Base(dir), name)
		dir = path.Dir(dir)
	}
}

func splitDestination(dst string) (dir, name string, err error) {
	if !path.IsAbs(dst) {
		return "", "", fmt.Errorf("destination %q must be an absolute path", dst)
	}
	clean := path.Clean(dst)
	if clean == "/" {
		return "", "", fmt.Errorf("destination %q names a directory", dst)
	}
	return path.Dir(clean), path.Base(clean), nil
}

// fileArchive builds a tar holding the regular file name, preceded by an
// entry for each directory in its relative path.
func fileArchive(name, content string, modTime time.Time) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)

	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		if err := tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeDir,
			Name:     strings.Join(parts[:i], "/") + "/",
			Mode:     0o755,
			ModTime:  modTime,
		}); err != nil {
			return nil, err
		}
	}
	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  modTime,
	}); err != nil {
		return nil, err
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}
