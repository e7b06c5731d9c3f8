// Package storagetest provides an in-memory ObjectStore for unit tests.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/filegate/backend/internal/storage"
	"github.com/google/uuid"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
	etag        string
	versionID   string
}

type bucket struct {
	created    time.Time
	objects    map[string][]*object // newest last
	policy     string
	versioning bool
}

// MemStore is an in-memory storage.ObjectStore. All operations are
// goroutine-safe. PutErr/RemoveErr inject failures for rollback tests.
type MemStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	PutErr    error
	RemoveErr error
}

func NewMemStore() *MemStore {
	return &MemStore{buckets: make(map[string]*bucket)}
}

func (s *MemStore) BucketExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[name]
	return ok, nil
}

func (s *MemStore) MakeBucket(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; ok {
		return errors.New("bucket already exists")
	}
	s.buckets[name] = &bucket{
		created: time.Now(),
		objects: make(map[string][]*object),
	}
	return nil
}

func (s *MemStore) RemoveBucket(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		return errors.New("bucket does not exist")
	}
	if len(b.objects) > 0 {
		return errors.New("bucket is not empty")
	}
	delete(s.buckets, name)
	return nil
}

func (s *MemStore) ListBuckets(ctx context.Context) ([]storage.BucketInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.BucketInfo, 0, len(s.buckets))
	for name, b := range s.buckets {
		out = append(out, storage.BucketInfo{Name: name, CreatedAt: b.created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) PutObject(ctx context.Context, bucketName, key string, r io.Reader, size int64, contentType string) (storage.PutResult, error) {
	if s.PutErr != nil {
		return storage.PutResult{}, s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.PutResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return storage.PutResult{}, errors.New("bucket does not exist")
	}
	obj := &object{
		data:        data,
		contentType: contentType,
		modified:    time.Now(),
		etag:        fmt.Sprintf("%x", len(data)),
	}
	if b.versioning {
		obj.versionID = uuid.NewString()
	}
	// Concurrent writers of the same key collapse onto one entry, like a
	// flat key space does.
	if !b.versioning {
		b.objects[key] = nil
	}
	b.objects[key] = append(b.objects[key], obj)
	return storage.PutResult{Size: int64(len(data)), ETag: obj.etag, VersionID: obj.versionID}, nil
}

func (s *MemStore) GetObject(ctx context.Context, bucketName, key, versionID string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return nil, errors.New("bucket does not exist")
	}
	versions, ok := b.objects[key]
	if !ok || len(versions) == 0 {
		return nil, errors.New("object does not exist")
	}
	if versionID == "" {
		return io.NopCloser(bytes.NewReader(versions[len(versions)-1].data)), nil
	}
	for _, v := range versions {
		if v.versionID == versionID {
			return io.NopCloser(bytes.NewReader(v.data)), nil
		}
	}
	return nil, errors.New("version does not exist")
}

func (s *MemStore) RemoveObject(ctx context.Context, bucketName, key string) error {
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return errors.New("bucket does not exist")
	}
	delete(b.objects, key)
	return nil
}

func (s *MemStore) ListObjects(ctx context.Context, bucketName, prefix string, recursive bool) ([]storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return nil, errors.New("bucket does not exist")
	}

	var out []storage.ObjectInfo
	seenPrefix := make(map[string]bool)
	for key, versions := range b.objects {
		if !strings.HasPrefix(key, prefix) || len(versions) == 0 {
			continue
		}
		cur := versions[len(versions)-1]
		if recursive {
			out = append(out, storage.ObjectInfo{
				Key: key, Size: int64(len(cur.data)), LastModified: cur.modified, ETag: cur.etag,
			})
			continue
		}
		// Non-recursive: deeper keys collapse into a synthetic directory
		// entry, the way S3 common prefixes surface.
		rest := key[len(prefix):]
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dir := prefix + rest[:idx+1]
			if !seenPrefix[dir] {
				seenPrefix[dir] = true
				out = append(out, storage.ObjectInfo{Key: dir})
			}
			continue
		}
		out = append(out, storage.ObjectInfo{
			Key: key, Size: int64(len(cur.data)), LastModified: cur.modified, ETag: cur.etag,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemStore) GetBucketPolicy(ctx context.Context, bucketName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return "", errors.New("bucket does not exist")
	}
	return b.policy, nil
}

func (s *MemStore) SetBucketPolicy(ctx context.Context, bucketName, policy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return errors.New("bucket does not exist")
	}
	b.policy = policy
	return nil
}

func (s *MemStore) SetVersioning(ctx context.Context, bucketName string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return errors.New("bucket does not exist")
	}
	b.versioning = enabled
	return nil
}

func (s *MemStore) PresignedGetURL(ctx context.Context, bucketName, key string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.buckets[bucketName]; !ok {
		return "", errors.New("bucket does not exist")
	}
	return fmt.Sprintf("https://minio.test/%s/%s?X-Amz-Expires=%d", bucketName, key, int(expiry.Seconds())), nil
}
