package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edulens/edulens/internal/errutil"
)

const objectsDir = "datasets"

// LocalRepository implements a WritableRepository backed by the local
// filesystem, storing every dataset as {root}/datasets/{name}.
type LocalRepository struct {
	Root string
}

func NewLocalRepository(root string) (*LocalRepository, error) {
	if err := os.MkdirAll(filepath.Join(root, objectsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset dir: %w", err)
	}
	return &LocalRepository{Root: root}, nil
}

func (r *LocalRepository) dir() string {
	return filepath.Join(r.Root, objectsDir)
}

// Path resolves name inside the repository, rejecting anything that could
// escape it.
func (r *LocalRepository) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(r.dir(), name), nil
}

func (r *LocalRepository) Exists(ctx context.Context, name string) (bool, error) {
	path, err := r.Path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (r *LocalRepository) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// List returns every stored dataset sorted by name.
func (r *LocalRepository) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(r.dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errutil.LogMissing(err, "Failed to stat dataset", "name", e.Name())
			continue
		}
		objects = append(objects, Object{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Put stores the content of src under name, replacing any previous version.
//
// Content goes to a temporary file first and is renamed into place once
// fully written, so a failed upload never leaves a truncated dataset.
func (r *LocalRepository) Put(ctx context.Context, name string, src io.Reader) (int64, error) {
	finalPath, err := r.Path(name)
	if err != nil {
		return 0, err
	}

	tmpFile, err := os.CreateTemp(r.dir(), ".put-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmpFile.Name()) }()
	defer func() { _ = tmpFile.Close() }()

	written, err := io.Copy(tmpFile, &ctxReader{ctx: ctx, r: src})
	if err != nil {
		return 0, fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), finalPath); err != nil {
		return 0, fmt.Errorf("failed to rename to final path: %w", err)
	}

	slog.Info("Stored dataset", "name", name, "size", written)
	return written, nil
}

func (r *LocalRepository) Delete(ctx context.Context, name string) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
