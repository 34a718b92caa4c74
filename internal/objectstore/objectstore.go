// Package objectstore abstracts the remote bucket holding the repository.
package objectstore

import (
	"context"
	"io"
	"strings"
	"time"
)

// Object is one entry of a bucket listing.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// IsFolderMarker reports whether the object is a zero-byte folder
// placeholder rather than a file.
func (o *Object) IsFolderMarker() bool {
	return strings.HasSuffix(o.Key, "/")
}

// Store is the remote object store consumed by the rebuild pipeline. Keys
// are opaque strings with forward-slash hierarchy. Implementations carry
// their own retry/timeout policy.
type Store interface {
	// List returns every object whose key starts with prefix. An empty
	// prefix lists the whole bucket.
	List(ctx context.Context, prefix string) ([]*Object, error)
	// Get opens the object body for reading. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, sourceKey, destKey string) error
}
