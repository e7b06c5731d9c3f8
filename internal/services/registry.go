package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/storage"
	"gorm.io/gorm"
)

// Registry orchestrates uploads, reuploads and deletes, keeping the
// metadata rows and the object store in step. Each mutating operation is a
// short saga: metadata placeholder, object write, metadata finalize, with a
// compensating rollback when the write fails. The two stores can still
// drift; listings expose that through the in_database flag instead of
// pretending it cannot happen.
type Registry struct {
	db        *gorm.DB
	store     storage.ObjectStore
	folders   *storage.FolderEngine
	baseURL   string
	protected map[string]bool
}

func NewRegistry(db *gorm.DB, store storage.ObjectStore, folders *storage.FolderEngine, baseURL string, protectedObjectBuckets []string) *Registry {
	protected := make(map[string]bool, len(protectedObjectBuckets))
	for _, b := range protectedObjectBuckets {
		protected[b] = true
	}
	return &Registry{
		db:        db,
		store:     store,
		folders:   folders,
		baseURL:   baseURL,
		protected: protected,
	}
}

// UploadInput describes one upload. FolderPath must already be canonical.
// CurrentFileID switches to update-in-place; a stale id degrades to an
// implicit create (documented policy, not an accident).
type UploadInput struct {
	Bucket      string
	FolderPath  string
	FileName    string
	ContentType string
	UserID      string
	Body        io.Reader
	// Update-in-place target; empty means create.
	CurrentFileID string
	Transform     TransformOptions
}

// Upload runs the full saga and returns the finalized row.
func (r *Registry) Upload(ctx context.Context, in UploadInput) (*models.File, error) {
	bucketExists, err := r.store.BucketExists(ctx, in.Bucket)
	if err != nil {
		return nil, err
	}
	if !bucketExists {
		return nil, storage.ErrBucketNotFound
	}
	if in.FolderPath != "" {
		pathExists, err := r.folders.PathExists(ctx, in.Bucket, in.FolderPath)
		if err != nil {
			return nil, err
		}
		if !pathExists {
			return nil, storage.ErrPathNotFound
		}
	}

	ext := fileExtension(in.FileName)
	if ext == "" {
		log.Printf("File extension missing: %s", in.FileName)
	}
	contentType := in.ContentType

	// Transform before any row is created, so a rejected conversion leaves
	// no partial state behind.
	var transformed []byte
	if in.Transform.Requested() {
		if !IsImageType(contentType) {
			return nil, ErrUnsupported
		}
		src, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload body: %w", err)
		}
		transformed, ext, err = TransformImage(src, in.Transform, ext)
		if err != nil {
			return nil, err
		}
		contentType = "image/" + ext
	}

	// Update-in-place when the caller names an existing row; a missing id
	// falls back to creating a fresh record.
	var file *models.File
	createdNew := false
	if in.CurrentFileID != "" {
		var existing models.File
		err := r.db.WithContext(ctx).
			Where("id = ? AND folder_path = ?", in.CurrentFileID, in.FolderPath).
			First(&existing).Error
		switch {
		case err == nil:
			file = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Printf("Reupload target %s not found, creating a new record", in.CurrentFileID)
		default:
			return nil, err
		}
	}
	if file == nil {
		file = &models.File{
			FileName:   in.FileName,
			FileKey:    "",
			BucketName: in.Bucket,
			FileType:   contentType,
			FileSize:   0,
			FolderPath: in.FolderPath,
			UserID:     in.UserID,
		}
		if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
			return nil, fmt.Errorf("failed to create file record: %w", err)
		}
		createdNew = true
	}

	fileKey := file.ID.String()
	if ext != "" {
		fileKey += "." + ext
	}
	objectKey := fileKey
	if in.FolderPath != "" {
		objectKey = in.FolderPath + "/" + fileKey
	}

	var body io.Reader = in.Body
	size := int64(-1)
	if transformed != nil {
		body = bytes.NewReader(transformed)
		size = int64(len(transformed))
	}

	result, err := r.putObject(ctx, in.Bucket, objectKey, body, size, contentType)
	if err == nil && result.Size <= 0 {
		err = fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if err != nil {
		r.rollbackUpload(ctx, in.Bucket, objectKey, file, createdNew)
		return nil, err
	}

	if result.VersionID == "" {
		log.Printf("No version id returned for %s/%s; versioning may be disabled on the bucket", in.Bucket, objectKey)
	}

	publicURL := fmt.Sprintf("%s/files/download/public-url/%s", r.baseURL, file.ID)
	if result.VersionID != "" {
		publicURL += "?version_id=" + result.VersionID
	}

	// The true size is known only now; the placeholder is finalized in one
	// update.
	file.FileName = in.FileName
	file.FileKey = fileKey
	file.FileExtension = ext
	file.FileType = contentType
	file.FileSize = result.Size
	file.VersionID = result.VersionID
	file.PublicURL = publicURL
	if err := r.db.WithContext(ctx).Save(file).Error; err != nil {
		r.rollbackUpload(ctx, in.Bucket, objectKey, file, createdNew)
		return nil, fmt.Errorf("failed to finalize file record: %w", err)
	}

	return file, nil
}

// putObject auto-creates the bucket on the off chance it vanished between
// the existence check and the write.
func (r *Registry) putObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.PutResult, error) {
	exists, err := r.store.BucketExists(ctx, bucket)
	if err != nil {
		return storage.PutResult{}, err
	}
	if !exists {
		if err := r.store.MakeBucket(ctx, bucket); err != nil {
			return storage.PutResult{}, err
		}
	}
	return r.store.PutObject(ctx, bucket, key, body, size, contentType)
}

// rollbackUpload deletes the placeholder row (when this upload created it)
// and best-effort removes whatever was partially written. Rollback failures
// are logged; the caller still sees the original error.
func (r *Registry) rollbackUpload(ctx context.Context, bucket, objectKey string, file *models.File, createdNew bool) {
	if createdNew {
		if err := r.db.WithContext(ctx).Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
			log.Printf("Failed to roll back placeholder record %s: %v", file.ID, err)
		}
	}
	if err := r.store.RemoveObject(ctx, bucket, objectKey); err != nil {
		log.Printf("Failed to remove partial object %s/%s: %v", bucket, objectKey, err)
	}
}

// DeleteObject removes a file for its owner: object first, then the row.
// If the object delete fails the row is kept and the failure surfaced, so
// no silent partial success is possible.
func (r *Registry) DeleteObject(ctx context.Context, bucket, folderPath, fileID, userID string) error {
	if r.protected[bucket] {
		return fmt.Errorf("%w: %s", ErrProtectedBucket, bucket)
	}

	var file models.File
	err := r.db.WithContext(ctx).
		Where("id = ? AND bucket_name = ? AND folder_path = ?", fileID, bucket, folderPath).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: object not found in database", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if file.UserID != userID {
		return fmt.Errorf("%w: you can only delete your own objects", ErrForbidden)
	}

	if err := r.store.RemoveObject(ctx, bucket, file.ObjectKey()); err != nil {
		return fmt.Errorf("failed to remove object from storage: %w", err)
	}
	if err := r.db.WithContext(ctx).Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
		return fmt.Errorf("failed to remove file record: %w", err)
	}
	return nil
}

// GetFile fetches one row scoped to its bucket and folder.
func (r *Registry) GetFile(ctx context.Context, bucket, folderPath, fileID string) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).
		Where("id = ? AND bucket_name = ? AND folder_path = ?", fileID, bucket, folderPath).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file not found in database", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// GetFileByID fetches one row by id alone.
func (r *Registry) GetFileByID(ctx context.Context, fileID string) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file not found in database", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListedEntry is one row of a folder listing: either a synthesized
// subfolder or a file, the latter cross-referenced against the metadata
// store. InDatabase is false for objects only the storage side knows about.
type ListedEntry struct {
	Type              string     `json:"type"`
	FolderName        string     `json:"folder_name"`
	FullPath          string     `json:"full_path"`
	FileName          string     `json:"file_name,omitempty"`
	FileID            string     `json:"file_id,omitempty"`
	FileKey           string     `json:"file_key,omitempty"`
	Size              int64      `json:"size,omitempty"`
	HumanReadableSize string     `json:"human_readable_size,omitempty"`
	LastModified      *time.Time `json:"last_modified,omitempty"`
	ETag              string     `json:"etag,omitempty"`
	FileType          string     `json:"file_type,omitempty"`
	InDatabase        bool       `json:"in_database"`
}

// ListObjects returns one directory level under folderPath.
func (r *Registry) ListObjects(ctx context.Context, bucket, folderPath string) ([]ListedEntry, error) {
	bucketExists, err := r.store.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !bucketExists {
		return nil, storage.ErrBucketNotFound
	}
	if folderPath != "" {
		pathExists, err := r.folders.PathExists(ctx, bucket, folderPath)
		if err != nil {
			return nil, err
		}
		if !pathExists {
			return nil, storage.ErrPathNotFound
		}
	}

	folders, files, err := r.folders.List(ctx, bucket, folderPath)
	if err != nil {
		return nil, err
	}

	entries := make([]ListedEntry, 0, len(folders)+len(files))
	for _, f := range folders {
		entries = append(entries, ListedEntry{
			Type:       "folder",
			FolderName: f.Name,
			FullPath:   f.FullPath,
		})
	}

	segments := strings.Split(folderPath, "/")
	parentName := segments[len(segments)-1]

	for _, obj := range files {
		entry := ListedEntry{
			Type:              "file",
			FolderName:        parentName,
			FullPath:          folderPath,
			FileKey:           obj.Key,
			FileID:            keyStem(obj.Key),
			Size:              obj.Info.Size,
			HumanReadableSize: HumanSize(obj.Info.Size),
			ETag:              obj.Info.ETag,
		}
		if !obj.Info.LastModified.IsZero() {
			modified := obj.Info.LastModified
			entry.LastModified = &modified
		}

		var record models.File
		err := r.db.WithContext(ctx).
			Where("bucket_name = ? AND folder_path = ? AND file_key = ?", bucket, folderPath, obj.Key).
			First(&record).Error
		switch {
		case err == nil:
			entry.FileName = record.FileName
			entry.FileType = record.FileType
			entry.InDatabase = true
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Present in storage only
			entry.FileType = "path"
		default:
			return nil, err
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func fileExtension(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 && idx < len(name)-1 {
		return strings.ToLower(name[idx+1:])
	}
	return ""
}

func keyStem(key string) string {
	if idx := strings.Index(key, "."); idx >= 0 {
		return key[:idx]
	}
	return key
}
