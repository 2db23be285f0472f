// Package storage defines the Storage interface used to publish the output
// set, a factory keyed by backend name, and the Publisher that lays out
// versioned and latest keys.
//
// Backends register themselves from init() in their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.PublishConfig) (storage.Storage, error) {
//	        return New(cfg)
//	    })
//	}
//
// The binary imports each backend with a blank import to trigger init().
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Storage is an object store that artifacts are published to.
type Storage interface {
	// Upload stores an object and returns its key and checksum
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download retrieves an object
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes an object; deleting a missing object is not an error
	Delete(ctx context.Context, path string) error

	// GetURL returns a download URL. Cloud backends sign it for ttl.
	GetURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Exists checks if an object exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata retrieves object metadata without downloading it
	GetMetadata(ctx context.Context, path string) (*FileMetadata, error)

	// List returns the keys starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
}

// UploadResult contains information about an uploaded object
type UploadResult struct {
	// Path is the key the object was stored under
	Path string

	// Size is the object size in bytes
	Size int64

	// Checksum is the hex SHA256 of the object contents
	Checksum string
}

// FileMetadata contains metadata about a stored object
type FileMetadata struct {
	Path         string
	Size         int64
	Checksum     string
	LastModified time.Time
}

// ChecksumMetadataKey is the object metadata key holding the SHA256.
const ChecksumMetadataKey = "sha256"

// PrepareBody computes the SHA256 and size of reader and returns a reader
// positioned at the start of the same content. Seekable readers are hashed
// in place and rewound; anything else is buffered in memory.
func PrepareBody(reader io.Reader) (io.Reader, string, int64, error) {
	hasher := sha256.New()

	if rs, ok := reader.(io.ReadSeeker); ok {
		n, err := io.Copy(hasher, rs)
		if err != nil {
			return nil, "", 0, fmt.Errorf("failed to hash data: %w", err)
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, "", 0, fmt.Errorf("failed to rewind data: %w", err)
		}
		return rs, hex.EncodeToString(hasher.Sum(nil)), n, nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to read data: %w", err)
	}
	hasher.Write(data)
	return bytes.NewReader(data), hex.EncodeToString(hasher.Sum(nil)), int64(len(data)), nil
}
