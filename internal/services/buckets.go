package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/storage"
	"gorm.io/gorm"
)

// Buckets manages bucket lifecycle: creation with the gateway's standard
// public-read policy and versioning, guarded deletion, listing and stats.
type Buckets struct {
	db        *gorm.DB
	store     storage.ObjectStore
	protected map[string]bool
}

func NewBuckets(db *gorm.DB, store storage.ObjectStore, protectedBuckets []string) *Buckets {
	protected := make(map[string]bool, len(protectedBuckets))
	for _, b := range protectedBuckets {
		protected[b] = true
	}
	return &Buckets{db: db, store: store, protected: protected}
}

// BucketSummary is one listed bucket with its derived stats.
type BucketSummary struct {
	Name                   string    `json:"name"`
	CreationDate           time.Time `json:"creation_date"`
	Public                 bool      `json:"public"`
	TotalFiles             int64     `json:"total_files"`
	TotalSizeBytes         int64     `json:"total_size_bytes"`
	TotalSizeHumanReadable string    `json:"total_size_human_readable"`
}

// BucketStats is the per-bucket stats response.
type BucketStats struct {
	BucketName             string `json:"bucket_name"`
	TotalFiles             int64  `json:"total_files"`
	TotalSizeBytes         int64  `json:"total_size_bytes"`
	TotalSizeHumanReadable string `json:"total_size_human_readable"`
}

// List enumerates buckets with their public flag and stats. Stats failures
// for one bucket degrade that entry, not the whole listing.
func (b *Buckets) List(ctx context.Context) ([]BucketSummary, error) {
	buckets, err := b.store.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	out := make([]BucketSummary, 0, len(buckets))
	for _, info := range buckets {
		summary := BucketSummary{
			Name:           info.Name,
			CreationDate:   info.CreatedAt,
			Public:         b.isPublic(ctx, info.Name),
			TotalFiles:     -1,
			TotalSizeBytes: -1,
		}
		if stats, err := b.Stats(ctx, info.Name); err == nil {
			summary.TotalFiles = stats.TotalFiles
			summary.TotalSizeBytes = stats.TotalSizeBytes
			summary.TotalSizeHumanReadable = stats.TotalSizeHumanReadable
		} else {
			log.Printf("Failed to collect stats for bucket %s: %v", info.Name, err)
		}
		out = append(out, summary)
	}
	return out, nil
}

// Stats walks the bucket and totals its objects.
func (b *Buckets) Stats(ctx context.Context, bucket string) (*BucketStats, error) {
	exists, err := b.store.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrBucketNotFound
	}

	objects, err := b.store.ListObjects(ctx, bucket, "", true)
	if err != nil {
		return nil, err
	}
	var totalSize int64
	for _, obj := range objects {
		totalSize += obj.Size
	}
	return &BucketStats{
		BucketName:             bucket,
		TotalFiles:             int64(len(objects)),
		TotalSizeBytes:         totalSize,
		TotalSizeHumanReadable: HumanSize(totalSize),
	}, nil
}

// publicReadPolicy is the standard anonymous-GET bucket policy.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect":    "Allow",
			"Principal": "*",
			"Action":    "s3:GetObject",
			"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
		}},
	}
	data, _ := json.Marshal(policy)
	return string(data)
}

// Create makes a new bucket with public read access and versioning enabled.
func (b *Buckets) Create(ctx context.Context, bucket string) error {
	exists, err := b.store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBucketConflict, bucket)
	}

	if err := b.store.MakeBucket(ctx, bucket); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	log.Printf("Bucket %s created successfully", bucket)

	if err := b.store.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	if err := b.store.SetVersioning(ctx, bucket, true); err != nil {
		return fmt.Errorf("failed to enable versioning: %w", err)
	}
	return nil
}

// Delete removes a bucket only when it is empty on both sides: no metadata
// rows and no stored objects.
func (b *Buckets) Delete(ctx context.Context, bucket string) error {
	exists, err := b.store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrBucketNotFound
	}
	if b.protected[bucket] {
		return fmt.Errorf("%w: %s", ErrProtectedBucket, bucket)
	}

	var rows int64
	if err := b.db.WithContext(ctx).Model(&models.File{}).Where("bucket_name = ?", bucket).Count(&rows).Error; err != nil {
		return err
	}
	if rows > 0 {
		return fmt.Errorf("%w in database", ErrBucketNotEmpty)
	}

	objects, err := b.store.ListObjects(ctx, bucket, "", true)
	if err != nil {
		return err
	}
	if len(objects) > 0 {
		return fmt.Errorf("%w in storage", ErrBucketNotEmpty)
	}

	return b.store.RemoveBucket(ctx, bucket)
}

func (b *Buckets) isPublic(ctx context.Context, bucket string) bool {
	policy, err := b.store.GetBucketPolicy(ctx, bucket)
	if err != nil {
		return false
	}
	return strings.Contains(policy, "s3:GetObject")
}
