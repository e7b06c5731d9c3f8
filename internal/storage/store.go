package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrBucketNotFound = errors.New("bucket does not exist")
	ErrBucketExists   = errors.New("bucket already exists")
	ErrBucketNotEmpty = errors.New("bucket is not empty")
	ErrPathNotFound   = errors.New("folder path does not exist")
	ErrPathNotEmpty   = errors.New("folder path is not empty")
	ErrInvalidPath    = errors.New("folder path is not valid")
	ErrReservedPath   = errors.New("folder path uses a reserved segment")
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// BucketInfo describes one bucket.
type BucketInfo struct {
	Name      string
	CreatedAt time.Time
}

// PutResult carries what the store reported back after a write.
type PutResult struct {
	Size      int64
	ETag      string
	VersionID string
}

// ObjectStore is the gateway's view of the binary object store. Implemented
// by MinioStore in production and by storagetest.MemStore in tests.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	RemoveBucket(ctx context.Context, bucket string) error
	ListBuckets(ctx context.Context) ([]BucketInfo, error)

	// PutObject writes the full reader. Pass size -1 to let the store
	// determine the length itself.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (PutResult, error)
	// GetObject opens an object for reading, optionally a specific version.
	GetObject(ctx context.Context, bucket, key, versionID string) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string, recursive bool) ([]ObjectInfo, error)

	GetBucketPolicy(ctx context.Context, bucket string) (string, error)
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
	SetVersioning(ctx context.Context, bucket string, enabled bool) error

	PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}
