package services

import (
	"context"
	"log"

	"github.com/filegate/backend/internal/models"
	"gorm.io/gorm"
)

// RequestLogs appends and reads per-file access telemetry.
type RequestLogs struct {
	db *gorm.DB
}

func NewRequestLogs(db *gorm.DB) *RequestLogs {
	return &RequestLogs{db: db}
}

// Log records one access attempt. Best-effort: a failure is logged and
// swallowed, never surfaced to the download path. The file id is not
// required to reference an existing row.
func (l *RequestLogs) Log(ctx context.Context, fileID, ipAddress, userAgent, projectName string) {
	entry := models.FileRequestLog{
		FileID:      fileID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		ProjectName: projectName,
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("Failed to record request log for file %s: %v", fileID, err)
	}
}

// ForFile returns all recorded accesses of one file.
func (l *RequestLogs) ForFile(ctx context.Context, fileID string) ([]models.FileRequestLog, error) {
	var logs []models.FileRequestLog
	if err := l.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
