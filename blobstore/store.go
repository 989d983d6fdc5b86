package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Store is a flat namespace of immutable blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes a blob atomically, replacing any existing blob of that name.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names with the given prefix in sorted order.
	List(ctx context.Context, prefix string) ([]string, error)
}
