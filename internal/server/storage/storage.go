// Package storage abstracts the durable blob store that holds uploaded
// attachment bytes. Attachment metadata lives in the database; only raw
// content goes through a BlobStore.
package storage

import (
	"context"
	"io"
)

// BlobStore persists and retrieves attachment blobs.
type BlobStore interface {
	// Save writes the blob under a store-chosen key derived from name and
	// returns that key. The key is what callers later pass to Open and is
	// the value persisted as the file row's storage path.
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Open returns a reader over the blob stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
