package storage

import (
	"bytes"
	"context"
	"strings"
)

// FolderEngine emulates directories on top of the flat object key space.
// A folder exists iff at least one key carries it as a prefix; an otherwise
// empty folder is held open by a zero-length marker object. Folders are a
// derived view, never a stored node.
type FolderEngine struct {
	store ObjectStore
}

func NewFolderEngine(store ObjectStore) *FolderEngine {
	return &FolderEngine{store: store}
}

// PathExists reports whether any object lives under path. The bucket root
// (empty path) is the callers' special case: it exists once the bucket does.
func (e *FolderEngine) PathExists(ctx context.Context, bucket, path string) (bool, error) {
	objects, err := e.store.ListObjects(ctx, bucket, path, true)
	if err != nil {
		return false, err
	}
	return len(objects) > 0, nil
}

// CreatePath makes a folder observable by writing its marker object.
// Returns created=false without error when the path already exists, so a
// concurrent second caller sees an idempotent success.
func (e *FolderEngine) CreatePath(ctx context.Context, bucket, path string) (created bool, err error) {
	if path == "" {
		return false, ErrInvalidPath
	}
	if ReservedFolderPath(path) {
		return false, ErrReservedPath
	}

	exists, err := e.store.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrBucketNotFound
	}

	pathExists, err := e.PathExists(ctx, bucket, path)
	if err != nil {
		return false, err
	}
	if pathExists {
		return false, nil
	}

	_, err = e.store.PutObject(ctx, bucket, MarkerKey(path), bytes.NewReader(nil), 0, "application/octet-stream")
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeletePath removes an empty folder. A folder holding anything beyond its
// own marker is refused; there is no recursive delete.
func (e *FolderEngine) DeletePath(ctx context.Context, bucket, path string) error {
	exists, err := e.store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBucketNotFound
	}

	pathExists, err := e.PathExists(ctx, bucket, path)
	if err != nil {
		return err
	}
	if !pathExists {
		return ErrPathNotFound
	}

	// One level only: deeper descendants show up as prefix entries, which
	// is enough to refuse the delete.
	objects, err := e.store.ListObjects(ctx, bucket, path+"/", false)
	if err != nil {
		return err
	}

	switch {
	case len(objects) == 0:
		// The path itself is an object (e.g. a stray marker at the bare
		// path key)
		return e.store.RemoveObject(ctx, bucket, path)
	case len(objects) == 1 && objects[0].Key == MarkerKey(path):
		if err := e.store.RemoveObject(ctx, bucket, objects[0].Key); err != nil {
			return err
		}
		return e.store.RemoveObject(ctx, bucket, path)
	default:
		return ErrPathNotEmpty
	}
}

// FolderEntry is a synthesized immediate subfolder in a listing.
type FolderEntry struct {
	Name     string
	FullPath string
}

// ObjectEntry is a file directly inside the listed folder.
type ObjectEntry struct {
	Key  string
	Info ObjectInfo
}

// List folds a recursive listing under path into single-directory-level
// semantics: one deduplicated entry per immediate subfolder, plus the files
// living directly in the folder. Marker objects are suppressed.
func (e *FolderEngine) List(ctx context.Context, bucket, path string) ([]FolderEntry, []ObjectEntry, error) {
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	objects, err := e.store.ListObjects(ctx, bucket, prefix, true)
	if err != nil {
		return nil, nil, err
	}
	folders, files := FoldListing(path, objects)
	return folders, files, nil
}

// FoldListing is the pure part of List, split out for direct testing.
func FoldListing(path string, objects []ObjectInfo) ([]FolderEntry, []ObjectEntry) {
	var folders []FolderEntry
	var files []ObjectEntry
	seen := make(map[string]bool)

	for _, obj := range objects {
		relative := strings.Trim(obj.Key[len(path):], "/")
		if relative == "" {
			continue
		}
		if idx := strings.Index(relative, "/"); idx >= 0 {
			name := relative[:idx]
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			folders = append(folders, FolderEntry{
				Name:     name,
				FullPath: strings.Trim(path+"/"+name, "/"),
			})
			continue
		}
		if IsMarkerKey(obj.Key) {
			continue
		}
		files = append(files, ObjectEntry{Key: relative, Info: obj})
	}
	return folders, files
}
