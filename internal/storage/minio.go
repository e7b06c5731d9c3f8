package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/filegate/backend/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements ObjectStore against a MinIO (or any S3-compatible)
// endpoint.
type MinioStore struct {
	client *minio.Client
}

func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// Ping verifies the endpoint is reachable. Used by the startup health check.
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

func (s *MinioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.client.BucketExists(ctx, bucket)
}

func (s *MinioStore) MakeBucket(ctx context.Context, bucket string) error {
	return s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

func (s *MinioStore) RemoveBucket(ctx context.Context, bucket string) error {
	return s.client.RemoveBucket(ctx, bucket)
}

func (s *MinioStore) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketInfo{Name: b.Name, CreatedAt: b.CreationDate})
	}
	return out, nil
}

func (s *MinioStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (PutResult, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if size < 0 {
		// Unknown length: multipart upload with 64 MB parts
		opts.PartSize = 64 * 1024 * 1024
	}
	info, err := s.client.PutObject(ctx, bucket, key, r, size, opts)
	if err != nil {
		return PutResult{}, err
	}
	return PutResult{Size: info.Size, ETag: info.ETag, VersionID: info.VersionID}, nil
}

func (s *MinioStore) GetObject(ctx context.Context, bucket, key, versionID string) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if versionID != "" {
		opts.VersionID = versionID
	}
	obj, err := s.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; stat now so a missing key fails here instead of on
	// the first read mid-response.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (s *MinioStore) RemoveObject(ctx context.Context, bucket, key string) error {
	return s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) ListObjects(ctx context.Context, bucket, prefix string, recursive bool) ([]ObjectInfo, error) {
	ch := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	var out []ObjectInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		})
	}
	return out, nil
}

func (s *MinioStore) GetBucketPolicy(ctx context.Context, bucket string) (string, error) {
	return s.client.GetBucketPolicy(ctx, bucket)
}

func (s *MinioStore) SetBucketPolicy(ctx context.Context, bucket, policy string) error {
	return s.client.SetBucketPolicy(ctx, bucket, policy)
}

func (s *MinioStore) SetVersioning(ctx context.Context, bucket string, enabled bool) error {
	status := "Suspended"
	if enabled {
		status = "Enabled"
	}
	return s.client.SetBucketVersioning(ctx, bucket, minio.BucketVersioningConfiguration{Status: status})
}

func (s *MinioStore) PresignedGetURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
