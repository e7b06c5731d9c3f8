package storage

import "strings"

// Folder paths are logical only: the object store has a flat key space and a
// "folder" is whatever shares a key prefix. A canonical path has no leading
// or trailing slash; the empty string is the bucket root.

// ReservedFolder is the path segment kept for the default namespace
// convention. It cannot be created as a folder.
const ReservedFolder = "root"

// markerName is the zero-length object that makes an otherwise empty folder
// prefix observable via listing.
const markerName = ".dummy"

// NormalizeFolderPath maps raw user input onto the canonical form: the bare
// "/" becomes the bucket root, and a single leading and trailing slash are
// stripped.
func NormalizeFolderPath(raw string) string {
	if raw == "/" {
		return ""
	}
	if strings.HasPrefix(raw, "/") {
		raw = raw[1:]
	}
	if strings.HasSuffix(raw, "/") {
		raw = raw[:len(raw)-1]
	}
	return raw
}

// ValidFolderPath reports whether path is already canonical. The empty
// string (bucket root) is valid. Callers normalize first; anything still
// carrying a slash at either end is a client error, not something to fix
// silently.
func ValidFolderPath(path string) bool {
	if path == "/" {
		return false
	}
	if strings.HasPrefix(path, "/") {
		return false
	}
	if strings.HasSuffix(path, "/") {
		return false
	}
	return true
}

// ReservedFolderPath reports whether path collides with the reserved
// namespace segment. Enforced at folder creation only.
func ReservedFolderPath(path string) bool {
	return path == ReservedFolder || strings.HasPrefix(path, ReservedFolder+"/")
}

// MarkerKey returns the marker object key for a folder path.
func MarkerKey(path string) string {
	return path + "/" + markerName
}

// IsMarkerKey reports whether key is a folder marker object.
func IsMarkerKey(key string) bool {
	return key == markerName || strings.HasSuffix(key, "/"+markerName)
}
