package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File represents one stored object and its metadata. The id doubles as the
// stem of the object-store key, so it is assigned before the object is
// written.
type File struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileName      string    `gorm:"size:255;not null" json:"file_name"`
	FileKey       string    `gorm:"size:255;not null" json:"file_key"`
	FileExtension string    `gorm:"size:32" json:"file_extension"`
	BucketName    string    `gorm:"size:100;not null;index" json:"bucket_name"`
	FileType      string    `gorm:"size:100;not null" json:"file_type"`
	FileSize      int64     `gorm:"not null" json:"file_size"`
	DownloadCount int64     `gorm:"default:0" json:"download_count"`
	PublicURL     string    `gorm:"size:500" json:"public_url"`
	UserID        string    `gorm:"size:64;index" json:"user_id"`
	// Set only when the bucket has versioning enabled
	VersionID  string    `gorm:"size:255" json:"version_id,omitempty"`
	FolderPath string    `gorm:"size:500;not null;default:''" json:"folder_path"`
	CreatedAt  time.Time `json:"created_at"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// ObjectKey returns the full object-store key for this file, folding the
// logical folder path back onto the flat key space.
func (f *File) ObjectKey() string {
	if f.FolderPath != "" {
		return f.FolderPath + "/" + f.FileKey
	}
	return f.FileKey
}

// FileRequestLog records one download/access attempt. Append-only,
// best-effort; the referenced file does not have to exist at log time.
type FileRequestLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FileID      string    `gorm:"size:64;not null;index" json:"file_id"`
	IPAddress   string    `gorm:"size:50;not null" json:"ip_address"`
	UserAgent   string    `gorm:"size:255" json:"user_agent"`
	ProjectName string    `gorm:"size:100" json:"project_name"`
	Timestamp   time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

func (FileRequestLog) TableName() string {
	return "file_request_logs"
}
