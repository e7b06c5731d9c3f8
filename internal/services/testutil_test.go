package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/storage"
	"github.com/filegate/backend/internal/storage/storagetest"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBaseURL = "http://localhost:8080"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestStack(t *testing.T, buckets ...string) (*gorm.DB, *storagetest.MemStore, *Registry) {
	t.Helper()
	db := newTestDB(t)
	store := storagetest.NewMemStore()
	for _, b := range buckets {
		if err := store.MakeBucket(context.Background(), b); err != nil {
			t.Fatal(err)
		}
	}
	folders := storage.NewFolderEngine(store)
	registry := NewRegistry(db, store, folders, testBaseURL, []string{"products", "images", "cdn"})
	return db, store, registry
}

// memCache is an in-memory SessionCache with an injectable clock, so expiry
// can be tested without sleeping.
type memCache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string]cacheItem), now: time.Now}
}

func (c *memCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok || c.now().After(item.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return item.value, true, nil
}
