package repository

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound    = errors.New("dataset not found")
	ErrInvalidName = errors.New("invalid dataset name")
)

// Object is one stored dataset file.
type Object struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

type Repository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Get(ctx context.Context, name string) (io.ReadCloser, int64, error)
	List(ctx context.Context) ([]Object, error)
}

type WritableRepository interface {
	Repository
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Delete(ctx context.Context, name string) error
	// Path returns a filesystem path readers can open directly.
	Path(name string) (string, error)
}
