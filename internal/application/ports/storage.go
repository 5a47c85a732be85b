package ports

import (
	"context"
	"io"
)

// Disk is the uniform contract over a byte-storage backend. The registry
// never holds the bytes itself, only a (disk, storage key) reference.
type Disk interface {
	// Put persists content under a backend-specific key derived from
	// suggestedName and returns that key.
	Put(ctx context.Context, r io.Reader, size int64, suggestedName string) (string, error)
	// Get fails with attachment.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent: removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL returns a directly-servable URL, or "" when the bytes must
	// be streamed through the gated output endpoint.
	PublicURL(key string) string
}
