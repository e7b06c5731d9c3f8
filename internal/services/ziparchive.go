package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/storage"
	"gorm.io/gorm"
)

// Archiver packages a set of stored files into one zip payload. A simple
// aggregation: per-object fetch failures are skipped, not fatal.
type Archiver struct {
	db    *gorm.DB
	store storage.ObjectStore
}

func NewArchiver(db *gorm.DB, store storage.ObjectStore) *Archiver {
	return &Archiver{db: db, store: store}
}

// Files fetches the rows behind a list of ids, optionally scoped to one
// bucket.
func (a *Archiver) Files(ctx context.Context, fileIDs []string, bucket string) ([]models.File, error) {
	query := a.db.WithContext(ctx).Where("id IN ?", fileIDs)
	if bucket != "" {
		query = query.Where("bucket_name = ?", bucket)
	}
	var files []models.File
	if err := query.Find(&files).Error; err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files found matching criteria", ErrNotFound)
	}
	return files, nil
}

// Zip builds the archive in memory, one entry per file keyed by its full
// object path.
func (a *Archiver) Zip(ctx context.Context, files []models.File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, f := range files {
		key := f.ObjectKey()
		obj, err := a.store.GetObject(ctx, f.BucketName, key, "")
		if err != nil {
			log.Printf("zip: failed to fetch %s/%s: %v", f.BucketName, key, err)
			continue
		}
		entry, err := zw.Create(key)
		if err != nil {
			obj.Close()
			zw.Close()
			return nil, err
		}
		if _, err := io.Copy(entry, obj); err != nil {
			obj.Close()
			zw.Close()
			return nil, fmt.Errorf("zip: failed to write %s: %w", key, err)
		}
		obj.Close()
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
