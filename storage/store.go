package storage

import (
	"context"
	"errors"
	"io"
)

// Container represents a flat namespace of named blobs, such as an S3 bucket.
type Container interface {
	// Ensure creates the container if it does not exist yet. It must be
	// idempotent.
	Ensure(ctx context.Context) error

	// Put stores value under name, overwriting any previous value.
	Put(ctx context.Context, name string, value []byte) error

	// Get should return ErrNotFound if the name is not in the container. The
	// caller closes the returned reader.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes name from the container. Deleting a name that is not in
	// the container is not an error.
	Delete(ctx context.Context, name string) error

	// Walk calls fn for each name in the container. Iteration stops at the
	// first error returned by fn, and Walk returns that error.
	Walk(ctx context.Context, fn func(name string) error) error
}

var (
	// ErrNotFound indicates a name is not in the container.
	ErrNotFound = errors.New("not found")
)

func dup(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
