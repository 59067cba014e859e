package storage

import (
	"context"
	"io"
	"time"
)

// SnapshotStore persists assembled application configuration snapshots.
type SnapshotStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
}
