// Package objectstore defines the blob store primitives used by the batch
// artifact store along with decorators for retries and metrics.
//
// Keys passed to a Store are fully resolved (already carrying the environment
// prefix). Backends live in subpackages: gcs for Google Cloud Storage,
// sqlitestore for a single-file local bucket, and memstore for tests.
package objectstore

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	Updated     time.Time
}

// WriteOptions controls object metadata on write.
type WriteOptions struct {
	ContentType  string
	CacheControl string
}

// DefaultCacheControl is applied to uploads that do not set one.
const DefaultCacheControl = "public, max-age=3600"

// Store is the read/write/list/stat surface over a blob bucket.
//
// Read and Stat return an error marked services.ErrNotFound when the key is
// absent. Exists returns false without error in that case.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, opts WriteOptions) error
	Exists(ctx context.Context, key string) (bool, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// List returns every object whose key starts with prefix, in key order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// ListPrefixes returns the immediate child folders of prefix, each with a
	// trailing slash.
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
	// SignedURL issues a time-limited read URL for key.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// MakePublic grants anonymous read access to key.
	MakePublic(ctx context.Context, key string) error
}
