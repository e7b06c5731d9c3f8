package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/filegate/backend/internal/models"
	"github.com/filegate/backend/internal/storage"
	"github.com/google/uuid"
)

func issueTestFile(t *testing.T, registry *Registry) *models.File {
	t.Helper()
	file, err := registry.Upload(context.Background(), uploadInput("docs", "", "a.txt", "text/plain", []byte("payload")))
	if err != nil {
		t.Fatal(err)
	}
	return file
}

func TestSessionIssueAndRedeem(t *testing.T) {
	db, _, registry := newTestStack(t, "docs")
	cache := newMemCache()
	sessions := NewSessions(db, cache, testBaseURL)
	ctx := context.Background()

	file := issueTestFile(t, registry)

	issued, err := sessions.Issue(ctx, "docs", "", file.ID.String(), 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(issued.URL, testBaseURL+"/files/download/api-url/") {
		t.Errorf("unexpected redemption URL %q", issued.URL)
	}
	if !strings.HasSuffix(issued.URL, issued.SessionID) {
		t.Errorf("redemption URL %q should embed the session id %q", issued.URL, issued.SessionID)
	}

	resolved, err := sessions.Redeem(ctx, issued.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Bucket != "docs" {
		t.Errorf("Bucket = %q", resolved.Bucket)
	}
	if resolved.ObjectKey != file.FileKey {
		t.Errorf("ObjectKey = %q, want %q", resolved.ObjectKey, file.FileKey)
	}
	if resolved.File.ID != file.ID {
		t.Errorf("resolved wrong file: %s", resolved.File.ID)
	}

	// Sessions are not single-use inside their ttl
	if _, err := sessions.Redeem(ctx, issued.SessionID); err != nil {
		t.Errorf("second redemption inside ttl should succeed: %v", err)
	}
}

func TestSessionObjectKeyRebuiltFromPayload(t *testing.T) {
	db, store, registry := newTestStack(t, "docs")
	cache := newMemCache()
	sessions := NewSessions(db, cache, testBaseURL)
	ctx := context.Background()

	folders := storage.NewFolderEngine(store)
	if _, err := folders.CreatePath(ctx, "docs", "deep/nested"); err != nil {
		t.Fatal(err)
	}
	file, err := registry.Upload(ctx, uploadInput("docs", "deep/nested", "a.txt", "text/plain", []byte("payload")))
	if err != nil {
		t.Fatal(err)
	}

	issued, err := sessions.Issue(ctx, "docs", "deep/nested", file.ID.String(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := sessions.Redeem(ctx, issued.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if want := "deep/nested/" + file.FileKey; resolved.ObjectKey != want {
		t.Errorf("ObjectKey = %q, want %q", resolved.ObjectKey, want)
	}
}

func TestSessionExpiry(t *testing.T) {
	db, _, registry := newTestStack(t, "docs")
	cache := newMemCache()
	now := time.Now()
	cache.now = func() time.Time { return now }
	sessions := NewSessions(db, cache, testBaseURL)
	ctx := context.Background()

	file := issueTestFile(t, registry)
	issued, err := sessions.Issue(ctx, "docs", "", file.ID.String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Second)
	_, err = sessions.Redeem(ctx, issued.SessionID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session: got %v, want ErrNotFound", err)
	}
}

func TestSessionNeverIssued(t *testing.T) {
	db, _, _ := newTestStack(t, "docs")
	sessions := NewSessions(db, newMemCache(), testBaseURL)

	_, err := sessions.Redeem(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSessionIssueMissingFile(t *testing.T) {
	db, _, _ := newTestStack(t, "docs")
	sessions := NewSessions(db, newMemCache(), testBaseURL)

	_, err := sessions.Issue(context.Background(), "docs", "", uuid.NewString(), time.Minute)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSessionMalformedPayload(t *testing.T) {
	db, _, _ := newTestStack(t, "docs")
	cache := newMemCache()
	sessions := NewSessions(db, cache, testBaseURL)
	ctx := context.Background()

	if err := cache.SetWithTTL(ctx, "bad-session", []byte("{not json"), time.Minute); err != nil {
		t.Fatal(err)
	}
	_, err := sessions.Redeem(ctx, "bad-session")
	if !errors.Is(err, ErrMalformedSession) {
		t.Fatalf("got %v, want ErrMalformedSession", err)
	}
}

func TestSessionPayloadMissingFields(t *testing.T) {
	db, _, _ := newTestStack(t, "docs")
	cache := newMemCache()
	sessions := NewSessions(db, cache, testBaseURL)
	ctx := context.Background()

	if err := cache.SetWithTTL(ctx, "thin-session", []byte(`{"current_file_id":"x"}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	_, err := sessions.Redeem(ctx, "thin-session")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestSessionOutlivesDeletedFile(t *testing.T) {
	db, _, registry := newTestStack(t, "docs")
	cache := newMemCache()
	sessions := NewSessions(db, cache, testBaseURL)
	ctx := context.Background()

	file := issueTestFile(t, registry)
	issued, err := sessions.Issue(ctx, "docs", "", file.ID.String(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
		t.Fatal(err)
	}

	_, err = sessions.Redeem(ctx, issued.SessionID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound for a deleted file", err)
	}
}
