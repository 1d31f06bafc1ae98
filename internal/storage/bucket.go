package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks failures reaching the object store itself.
	ErrUnavailable = errors.New("object storage unavailable")
	// ErrObjectNotFound is returned by Get for a missing key.
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Bucket is the key/value blob store the helpdesk writes ticket snapshots and messages to.
// Keys are slash separated paths; prefix matching is literal.
type Bucket interface {
	EnsureBucket(ctx context.Context, name string) error
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	ListByPrefix(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
