package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a remote object does not exist. It is a valid
// outcome, not a transport failure: callers react by creating the object.
var ErrNotFound = errors.New("object not found")

// BlobStore is the remote object store the pipeline syncs against. All
// calls take a context so transport timeouts are bounded by the caller.
type BlobStore interface {
	// GetLastModified returns the remote object's last-modified timestamp,
	// or ErrNotFound if the object does not exist.
	GetLastModified(ctx context.Context, key string) (time.Time, error)

	// PutFile uploads a local file, overwriting any existing object.
	PutFile(ctx context.Context, key, localPath string) error

	// Put uploads raw bytes, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get downloads an object, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys of all objects under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error
}
