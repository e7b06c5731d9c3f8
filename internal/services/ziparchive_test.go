package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestZipArchive(t *testing.T) {
	db, store, registry := newTestStack(t, "docs")
	ctx := context.Background()

	a, err := registry.Upload(ctx, uploadInput("docs", "", "a.txt", "text/plain", []byte("alpha")))
	if err != nil {
		t.Fatal(err)
	}
	b, err := registry.Upload(ctx, uploadInput("docs", "", "b.txt", "text/plain", []byte("bravo")))
	if err != nil {
		t.Fatal(err)
	}

	archiver := NewArchiver(db, store)
	files, err := archiver.Files(ctx, []string{a.ID.String(), b.ID.String()}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	data, err := archiver.Zip(ctx, files)
	if err != nil {
		t.Fatal(err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	contents := map[string]string{}
	for _, entry := range reader.File {
		rc, err := entry.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		contents[entry.Name] = string(body)
	}
	if contents[a.ObjectKey()] != "alpha" || contents[b.ObjectKey()] != "bravo" {
		t.Errorf("unexpected archive contents: %v", contents)
	}
}

func TestZipArchiveBucketFilter(t *testing.T) {
	db, store, registry := newTestStack(t, "docs", "media")
	ctx := context.Background()

	doc, err := registry.Upload(ctx, uploadInput("docs", "", "a.txt", "text/plain", []byte("alpha")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Upload(ctx, uploadInput("media", "", "b.txt", "text/plain", []byte("bravo"))); err != nil {
		t.Fatal(err)
	}

	archiver := NewArchiver(db, store)
	files, err := archiver.Files(ctx, []string{doc.ID.String()}, "media")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v (%d files), want ErrNotFound", err, len(files))
	}
}

func TestZipArchiveNoMatches(t *testing.T) {
	db, store, _ := newTestStack(t, "docs")
	archiver := NewArchiver(db, store)

	_, err := archiver.Files(context.Background(), []string{"00000000-0000-0000-0000-000000000000"}, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestZipArchiveSkipsMissingObjects(t *testing.T) {
	db, store, registry := newTestStack(t, "docs")
	ctx := context.Background()

	kept, err := registry.Upload(ctx, uploadInput("docs", "", "a.txt", "text/plain", []byte("alpha")))
	if err != nil {
		t.Fatal(err)
	}
	gone, err := registry.Upload(ctx, uploadInput("docs", "", "b.txt", "text/plain", []byte("bravo")))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RemoveObject(ctx, "docs", gone.ObjectKey()); err != nil {
		t.Fatal(err)
	}

	archiver := NewArchiver(db, store)
	files, err := archiver.Files(ctx, []string{kept.ID.String(), gone.ID.String()}, "")
	if err != nil {
		t.Fatal(err)
	}
	data, err := archiver.Zip(ctx, files)
	if err != nil {
		t.Fatal(err)
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(reader.File) != 1 || reader.File[0].Name != kept.ObjectKey() {
		t.Errorf("archive should contain only the reachable file, got %d entries", len(reader.File))
	}
}
