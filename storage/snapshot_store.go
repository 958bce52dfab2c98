package storage

import (
	"context"
	"io"
)

// PutResult describes a stored snapshot object.
type PutResult struct {
	Key      string
	Location string
	ETag     string
}

// SnapshotStore keeps published tournament documents (bracket snapshots) in a
// world-readable bucket. Keys are slash-separated paths under the bucket root.
type SnapshotStore interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) (*PutResult, error)

	// Remove unpublishes a previously stored document. Removing a key that
	// was never stored is not an error.
	Remove(ctx context.Context, key string) error

	PublicURL(key string) string
}
