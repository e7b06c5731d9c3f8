package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing file rows and missing/expired download
	// sessions; the two are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is an ownership mismatch.
	ErrForbidden = errors.New("permission denied")
	// ErrProtectedBucket guards the configured deny-lists.
	ErrProtectedBucket = errors.New("bucket is protected")
	// ErrUnsupported is a transform request against a non-image type.
	ErrUnsupported = errors.New("conversion is not supported for this file type")
	// ErrInvalidInput covers zero-byte uploads and session payloads missing
	// required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedSession is an undecodable cache payload; surfaced as an
	// opaque server error, never with cache internals attached.
	ErrMalformedSession = errors.New("malformed session payload")
	// ErrBucketConflict is a duplicate bucket creation.
	ErrBucketConflict = errors.New("bucket already exists")
	// ErrBucketNotEmpty refuses deletion of a bucket that still holds
	// objects or metadata rows.
	ErrBucketNotEmpty = errors.New("bucket is not empty")
)

// HumanSize renders a byte count the way the gateway always has: B, then
// two-decimal KB/MB/GB at 1024 steps.
func HumanSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	case size < 1024*1024*1024:
		return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	default:
		return fmt.Sprintf("%.2f GB", float64(size)/(1024*1024*1024))
	}
}
