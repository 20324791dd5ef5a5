package storage

import (
	"context"
	"io"
	"time"
)

// Store is the object storage contract the audio pipeline writes through.
// Keys are slash-separated paths owned by the caller.
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// SignedURL returns a time-limited read URL for the object.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
