// Package storage defines the object storage backend contract and a
// local filesystem implementation. Remote backends are named but left as
// stubs: credential handling for S3-compatible and cloud object stores is
// out of scope here.
package storage

import (
	"context"
	"errors"
)

// Sentinel errors a Backend implementation must return so callers can
// branch on them regardless of which backend is configured.
var (
	ErrNotFound           = errors.New("storage: object not found")
	ErrAlreadyExists      = errors.New("storage: object already exists")
	ErrBackendUnavailable = errors.New("storage: backend not configured")
	// ErrTransient marks a backend error as worth retrying (network
	// blip, throttling, a 5xx response) rather than surfacing
	// immediately. A Backend implementation wraps its own transient
	// errors with it (fmt.Errorf("...: %w", storage.ErrTransient)); local
	// filesystem errors are never transient in this sense.
	ErrTransient = errors.New("storage: transient backend error")
)

// Kind identifies a storage backend implementation.
type Kind string

const (
	KindLocal Kind = "local"
	KindS3    Kind = "s3"
	KindGCS   Kind = "gcs"
	KindAzure Kind = "azure"
	KindB2    Kind = "b2"
	KindMinIO Kind = "minio"
)

// Backend is the storage contract every object, chunk, and pack backend
// must satisfy. Keys are opaque, backend-relative paths — the caller (the
// object database) owns sharding and naming conventions.
type Backend interface {
	// Get returns the full content stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, overwriting any prior content.
	Put(ctx context.Context, key string, data []byte) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. It is not an error to delete a missing key.
	Delete(ctx context.Context, key string) error
	// ListObjects returns every key with the given prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// RangeReader is an optional capability: a Backend that can satisfy it
// avoids reading a whole object just to serve a byte range. Local
// implements it and remote stubs don't; the object database's
// read-to-file path does not use it and reads each chunk with Get.
type RangeReader interface {
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)
}

// HealthChecker is an optional capability reporting whether a backend is
// currently reachable, independent of any particular key.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
