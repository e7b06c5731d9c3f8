package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"

	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/storage"
	"gorm.io/gorm"
)

// Downloads resolves file rows to object streams, applying the optional
// on-the-fly image resize. Non-image payloads pass through chunk-by-chunk
// without being buffered.
type Downloads struct {
	db    *gorm.DB
	store storage.ObjectStore
}

func NewDownloads(db *gorm.DB, store storage.ObjectStore) *Downloads {
	return &Downloads{db: db, store: store}
}

// Stream is an open download. Body must be closed by the caller; closing it
// releases the underlying object-store read handle, so an aborted client
// connection stops the transfer promptly.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
	FileName    string
}

// Open fetches the object behind file (a specific version when given) and
// prepares the response stream. Width/height trigger the image path: full
// decode, aspect-preserving resize, re-encode to the recorded extension.
// A successful open bumps the download counter best-effort.
func (d *Downloads) Open(ctx context.Context, file *models.File, bucket, objectKey, versionID string, width, height int) (*Stream, error) {
	body, err := d.store.GetObject(ctx, bucket, objectKey, versionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, objectKey)
	}

	d.IncrementDownloadCount(ctx, file)

	if IsImageType(file.FileType) && (width > 0 || height > 0) {
		defer body.Close()
		src, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read object: %w", err)
		}
		resized, ext, err := TransformImage(src, TransformOptions{Width: width, Height: height}, file.FileExtension)
		if err != nil {
			return nil, err
		}
		return &Stream{
			Body:        io.NopCloser(bytes.NewReader(resized)),
			ContentType: "image/" + ext,
			FileName:    file.FileName,
		}, nil
	}

	return &Stream{
		Body:        body,
		ContentType: "application/octet-stream",
		FileName:    file.FileName,
	}, nil
}

// OpenBase64 fetches like Open but returns the payload as a data URL.
func (d *Downloads) OpenBase64(ctx context.Context, file *models.File, bucket, objectKey, versionID string, width, height int) (string, error) {
	stream, err := d.Open(ctx, file, bucket, objectKey, versionID, width, height)
	if err != nil {
		return "", err
	}
	defer stream.Body.Close()

	data, err := io.ReadAll(stream.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read object: %w", err)
	}
	return fmt.Sprintf("data:%s;base64,%s", file.FileType, base64.StdEncoding.EncodeToString(data)), nil
}

// IncrementDownloadCount bumps the counter without racing concurrent
// downloads. Failures are logged and swallowed; telemetry never blocks a
// download.
func (d *Downloads) IncrementDownloadCount(ctx context.Context, file *models.File) {
	err := d.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", file.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
	if err != nil {
		log.Printf("Failed to increment download count for %s: %v", file.ID, err)
	}
}
