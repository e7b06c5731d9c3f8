package storage_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/filegate/backend/internal/storage"
	"github.com/filegate/backend/internal/storage/storagetest"
)

func newEngine(t *testing.T, buckets ...string) (*storage.FolderEngine, *storagetest.MemStore) {
	t.Helper()
	store := storagetest.NewMemStore()
	for _, b := range buckets {
		if err := store.MakeBucket(context.Background(), b); err != nil {
			t.Fatal(err)
		}
	}
	return storage.NewFolderEngine(store), store
}

func TestCreatePathWritesMarker(t *testing.T) {
	engine, store := newEngine(t, "docs")
	ctx := context.Background()

	created, err := engine.CreatePath(ctx, "docs", "a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected created=true for a fresh path")
	}

	exists, err := engine.PathExists(ctx, "docs", "a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("path should exist after create")
	}

	objects, err := store.ListObjects(ctx, "docs", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 || objects[0].Key != "a/b/.dummy" {
		t.Fatalf("expected a single marker object, got %+v", objects)
	}

	// a/b shows up as a subfolder of a
	folders, _, err := engine.List(ctx, "docs", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 1 || folders[0].Name != "b" {
		t.Fatalf("expected folder entry b under a, got %+v", folders)
	}
}

func TestCreatePathAlreadyExists(t *testing.T) {
	engine, _ := newEngine(t, "docs")
	ctx := context.Background()

	if _, err := engine.CreatePath(ctx, "docs", "a"); err != nil {
		t.Fatal(err)
	}
	created, err := engine.CreatePath(ctx, "docs", "a")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("second create should report already-exists, not created")
	}
}

func TestCreatePathErrors(t *testing.T) {
	engine, _ := newEngine(t, "docs")
	ctx := context.Background()

	if _, err := engine.CreatePath(ctx, "missing", "a"); !errors.Is(err, storage.ErrBucketNotFound) {
		t.Errorf("missing bucket: got %v, want ErrBucketNotFound", err)
	}
	if _, err := engine.CreatePath(ctx, "docs", ""); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("empty path: got %v, want ErrInvalidPath", err)
	}
	if _, err := engine.CreatePath(ctx, "docs", "root"); !errors.Is(err, storage.ErrReservedPath) {
		t.Errorf("reserved path: got %v, want ErrReservedPath", err)
	}
	if _, err := engine.CreatePath(ctx, "docs", "root/sub"); !errors.Is(err, storage.ErrReservedPath) {
		t.Errorf("reserved subpath: got %v, want ErrReservedPath", err)
	}
}

func TestConcurrentCreatePath(t *testing.T) {
	engine, store := newEngine(t, "docs")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.CreatePath(ctx, "docs", "shared/path")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d failed: %v", i, err)
		}
	}
	objects, err := store.ListObjects(ctx, "docs", "shared/path/", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 {
		t.Fatalf("expected exactly one marker, got %d", len(objects))
	}
}

func TestDeletePathMarkerOnly(t *testing.T) {
	engine, store := newEngine(t, "docs")
	ctx := context.Background()

	if _, err := engine.CreatePath(ctx, "docs", "a/b"); err != nil {
		t.Fatal(err)
	}
	if err := engine.DeletePath(ctx, "docs", "a/b"); err != nil {
		t.Fatal(err)
	}
	objects, err := store.ListObjects(ctx, "docs", "a/b", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 0 {
		t.Fatalf("expected no objects after delete, got %+v", objects)
	}
}

func TestDeletePathNotEmpty(t *testing.T) {
	engine, store := newEngine(t, "docs")
	ctx := context.Background()

	if _, err := engine.CreatePath(ctx, "docs", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PutObject(ctx, "docs", "a/file.txt", strings.NewReader("data"), 4, "text/plain"); err != nil {
		t.Fatal(err)
	}

	if err := engine.DeletePath(ctx, "docs", "a"); !errors.Is(err, storage.ErrPathNotEmpty) {
		t.Fatalf("got %v, want ErrPathNotEmpty", err)
	}

	// Nothing was partially deleted
	objects, err := store.ListObjects(ctx, "docs", "a/", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected marker and file untouched, got %+v", objects)
	}
}

func TestDeletePathWithSubfolderRefused(t *testing.T) {
	engine, _ := newEngine(t, "docs")
	ctx := context.Background()

	if _, err := engine.CreatePath(ctx, "docs", "a/b"); err != nil {
		t.Fatal(err)
	}
	// a contains subfolder b, so a is not empty
	if err := engine.DeletePath(ctx, "docs", "a"); !errors.Is(err, storage.ErrPathNotEmpty) {
		t.Fatalf("got %v, want ErrPathNotEmpty", err)
	}
}

func TestDeletePathErrors(t *testing.T) {
	engine, _ := newEngine(t, "docs")
	ctx := context.Background()

	if err := engine.DeletePath(ctx, "missing", "a"); !errors.Is(err, storage.ErrBucketNotFound) {
		t.Errorf("missing bucket: got %v", err)
	}
	if err := engine.DeletePath(ctx, "docs", "ghost"); !errors.Is(err, storage.ErrPathNotFound) {
		t.Errorf("missing path: got %v", err)
	}
}

func TestListFoldsSubfolders(t *testing.T) {
	engine, store := newEngine(t, "docs")
	ctx := context.Background()

	put := func(key, data string) {
		t.Helper()
		if _, err := store.PutObject(ctx, "docs", key, strings.NewReader(data), int64(len(data)), "text/plain"); err != nil {
			t.Fatal(err)
		}
	}
	put("2024/q1/report.pdf", "pdf-bytes")
	put("2024/q1/notes.txt", "notes")
	put("2024/q1/deep/nested.txt", "nested")
	put("2024/q1/other/a.txt", "a")
	put("2024/q1/other/b.txt", "b")
	put("2024/q1/.dummy", "")

	folders, files, err := engine.List(ctx, "docs", "2024/q1")
	if err != nil {
		t.Fatal(err)
	}

	if len(folders) != 2 {
		t.Fatalf("expected 2 deduplicated subfolders, got %+v", folders)
	}
	names := map[string]string{}
	for _, f := range folders {
		names[f.Name] = f.FullPath
	}
	if names["deep"] != "2024/q1/deep" || names["other"] != "2024/q1/other" {
		t.Errorf("unexpected folder entries: %+v", names)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files (marker suppressed, descendants folded), got %+v", files)
	}
	for _, f := range files {
		if f.Key != "report.pdf" && f.Key != "notes.txt" {
			t.Errorf("unexpected file entry %q", f.Key)
		}
	}
}

func TestListBucketRoot(t *testing.T) {
	engine, store := newEngine(t, "docs")
	ctx := context.Background()

	if _, err := store.PutObject(ctx, "docs", "top.txt", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.CreatePath(ctx, "docs", "sub"); err != nil {
		t.Fatal(err)
	}

	folders, files, err := engine.List(ctx, "docs", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 1 || folders[0].Name != "sub" || folders[0].FullPath != "sub" {
		t.Fatalf("unexpected folders at root: %+v", folders)
	}
	if len(files) != 1 || files[0].Key != "top.txt" {
		t.Fatalf("unexpected files at root: %+v", files)
	}
}
