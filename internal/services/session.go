package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/filegate/backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SessionCache is the external key-value service holding download sessions.
// Values are opaque byte payloads; serialization is owned here.
type SessionCache interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns ok=false when the key is absent or expired; the two are
	// not distinguishable by contract.
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// RedisSessionCache implements SessionCache on a Redis client.
type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func (c *RedisSessionCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisSessionCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// sessionPayload is what a session id resolves to. Field names are part of
// the wire format shared with older deployments.
type sessionPayload struct {
	FileID     string `json:"current_file_id"`
	FileKey    string `json:"file_key"`
	BucketName string `json:"bucket_name"`
	FolderPath string `json:"folder_path"`
	VersionID  string `json:"version_id,omitempty"`
}

// IssuedSession is the issue-side result.
type IssuedSession struct {
	SessionID string
	URL       string
	FileKey   string
	ExpiresIn time.Duration
}

// ResolvedSession carries everything needed to perform the object read
// after redemption.
type ResolvedSession struct {
	File      *models.File
	Bucket    string
	ObjectKey string
	VersionID string
}

// Sessions issues and redeems short-lived download sessions. A session may
// be redeemed any number of times inside its TTL; expiry is solely the
// cache's job.
type Sessions struct {
	db      *gorm.DB
	cache   SessionCache
	baseURL string
}

func NewSessions(db *gorm.DB, cache SessionCache, baseURL string) *Sessions {
	return &Sessions{db: db, cache: cache, baseURL: baseURL}
}

// Issue creates a session for an existing file and returns the redemption
// URL embedding the fresh session id.
func (s *Sessions) Issue(ctx context.Context, bucket, folderPath, fileID string, ttl time.Duration) (*IssuedSession, error) {
	var file models.File
	err := s.db.WithContext(ctx).
		Where("id = ? AND bucket_name = ? AND folder_path = ?", fileID, bucket, folderPath).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	payload, err := json.Marshal(sessionPayload{
		FileID:     file.ID.String(),
		FileKey:    file.FileKey,
		BucketName: file.BucketName,
		FolderPath: file.FolderPath,
		VersionID:  file.VersionID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetWithTTL(ctx, sessionID, payload, ttl); err != nil {
		return nil, fmt.Errorf("failed to store download session: %w", err)
	}

	return &IssuedSession{
		SessionID: sessionID,
		URL:       fmt.Sprintf("%s/files/download/api-url/%s", s.baseURL, sessionID),
		FileKey:   file.FileKey,
		ExpiresIn: ttl,
	}, nil
}

// Redeem resolves a session id back to object coordinates. A cache miss is
// ErrNotFound whether the session expired or never existed. The object key
// is always rebuilt from the redeemed payload, never taken from anywhere
// else.
func (s *Sessions) Redeem(ctx context.Context, sessionID string) (*ResolvedSession, error) {
	data, ok, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read download session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Download session %s holds undecodable payload: %v", sessionID, err)
		return nil, ErrMalformedSession
	}
	if payload.FileID == "" || payload.FileKey == "" || payload.BucketName == "" {
		return nil, fmt.Errorf("%w: session payload missing required fields", ErrInvalidInput)
	}

	// The session can outlive the file; re-check the row.
	var file models.File
	err = s.db.WithContext(ctx).Where("id = ?", payload.FileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, payload.FileID)
	}
	if err != nil {
		return nil, err
	}

	objectKey := payload.FileKey
	if payload.FolderPath != "" {
		objectKey = payload.FolderPath + "/" + payload.FileKey
	}

	return &ResolvedSession{
		File:      &file,
		Bucket:    payload.BucketName,
		ObjectKey: objectKey,
		VersionID: payload.VersionID,
	}, nil
}
