package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound is returned when a stored object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// LocalClient stores objects as files under a directory on the server's
// own disk. It is the default backend and backs the public /uploads
// path.
type LocalClient struct {
	dir string
}

// NewLocalClient constructs a local-disk backend rooted at dir.
func NewLocalClient(dir string) (*LocalClient, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("uploads directory is required")
	}
	return &LocalClient{dir: dir}, nil
}

// EnsureBucket creates the uploads directory if missing.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

// Put writes an object to disk. The key must be a bare filename; keys
// with path separators are rejected so a caller can never escape the
// uploads directory.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Get opens a reader for a stored object.
func (l *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a stored object.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Bucket returns the uploads directory.
func (l *LocalClient) Bucket() string {
	return l.dir
}

func (l *LocalClient) resolve(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.ContainsAny(key, `/\`) {
		return "", errors.New("invalid object key")
	}
	return filepath.Join(l.dir, key), nil
}
